// Package macro records and replays input macros.
//
// A macro is an ordered list of Events, each a mouse click or a key press.
// Live recordings carry a wall-clock timestamp on every event; presets
// carry none.
//
// # Recording
//
// A Recorder attaches a click listener and a key listener to an input
// backend and appends events in delivery order. Pressing 'q' or Escape
// ends the recording, as does calling Stop.
//
//	rec := macro.NewRecorder(b, macro.WithOnComplete(save))
//	if err := rec.Start(profile); err != nil {
//	    return err
//	}
//	<-rec.Done()
//	events := rec.Events()
//
// # Playback
//
// A Player walks an event list and drives the backend. Timed sequences
// wait for each event's offset from the first event; untimed sequences
// wait a fixed preset delay between events. Waits are split into short
// ticks so Stop takes effect quickly.
//
//	player := macro.NewPlayer(b)
//	res, err := player.Play(ctx, events, macro.PlayOptions{Loop: true})
//
// # Persistence
//
// Marshal and Unmarshal convert between events and the JSON macro
// document. SaveFile writes atomically.
//
// # Thread Safety
//
// Recorder and Player are safe for concurrent use. Event is an
// immutable value.
package macro
