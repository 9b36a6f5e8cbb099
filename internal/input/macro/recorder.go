package macro

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ItvordRE/MacroRecorder/internal/input/backend"
	"github.com/ItvordRE/MacroRecorder/internal/input/key"
)

// State is the state of a recording or playback session.
type State int

const (
	// StateIdle means no session is live.
	StateIdle State = iota
	// StateRecording means a capture session is live.
	StateRecording
	// StatePlaying means a playback session is live.
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the time source used for event timestamps.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithOnEvent registers a callback that receives the event count after
// every append. It runs on a listener goroutine and must not block.
func WithOnEvent(fn func(count int)) RecorderOption {
	return func(r *Recorder) {
		r.onEvent = fn
	}
}

// WithOnComplete registers a callback that receives the captured events
// whenever a recording ends, by stop key or by Stop.
func WithOnComplete(fn func([]Event) error) RecorderOption {
	return func(r *Recorder) {
		r.onComplete = fn
	}
}

// WithRecorderLogger sets the recorder's logger.
func WithRecorderLogger(l zerolog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = l
	}
}

// Recorder is a capture session. It records clicks and key presses
// delivered by a backend until a stop key is pressed or Stop is called.
type Recorder struct {
	backend    backend.Backend
	now        func() time.Time
	onEvent    func(int)
	onComplete func([]Event) error
	logger     zerolog.Logger

	mu      sync.Mutex
	state   State
	proc    Processor
	events  []Event
	last    float64
	subs    []backend.Subscription
	done    chan struct{}
	lastErr error
}

// NewRecorder creates an idle recorder for the given backend.
func NewRecorder(b backend.Backend, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		backend: b,
		now:     time.Now,
		logger:  zerolog.Nop(),
		done:    closedChan(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start clears the previous recording, attaches the click and key
// listeners and begins recording. Each captured event is passed through
// proc.PreProcess; a nil proc leaves events unchanged.
func (r *Recorder) Start(proc Processor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording {
		return ErrAlreadyRecording
	}

	clicks, err := r.backend.SubscribeClicks(r.handleClick)
	if err != nil {
		return &BackendError{Op: string(backend.OpSubscribeClicks), Err: err}
	}
	keys, err := r.backend.SubscribeKeys(r.handleKey)
	if err != nil {
		_ = clicks.Detach()
		return &BackendError{Op: string(backend.OpSubscribeKeys), Err: err}
	}

	r.state = StateRecording
	r.proc = orNop(proc)
	r.events = nil
	r.last = 0
	r.subs = []backend.Subscription{clicks, keys}
	r.done = make(chan struct{})
	r.lastErr = nil

	r.logger.Debug().Msg("recording started")
	return nil
}

// Stop ends the recording as if a stop key had been pressed and returns
// the captured events. The error is the completion callback's error, or
// ErrNotRecording if no recording is live.
func (r *Recorder) Stop() ([]Event, error) {
	return r.finish("manual")
}

// Done returns a channel that is closed when the current recording ends.
// When idle it returns a closed channel.
func (r *Recorder) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Err returns the completion callback's error from the last recording.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// IsRecording returns true while a recording is live.
func (r *Recorder) IsRecording() bool {
	return r.State() == StateRecording
}

// Events returns a copy of the captured events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of captured events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *Recorder) handleClick(ev backend.ClickEvent) {
	r.append(NewClick(ev.X, ev.Y, ev.Button))
}

func (r *Recorder) handleKey(id key.Identity) {
	if id.IsStopSignal() {
		if r.IsRecording() {
			r.logger.Debug().Str("key", id.String()).Msg("stop key pressed")
			_, _ = r.finish("stop key")
		}
		return
	}
	r.append(NewKeyPress(id))
}

func (r *Recorder) append(e Event) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return
	}

	ts := Seconds(r.now())
	if ts < r.last {
		ts = r.last
	}
	r.last = ts

	r.events = append(r.events, r.proc.PreProcess(e.WithTime(ts)))
	count := len(r.events)
	onEvent := r.onEvent
	r.mu.Unlock()

	if onEvent != nil {
		onEvent(count)
	}
}

func (r *Recorder) finish(reason string) ([]Event, error) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}

	r.state = StateIdle
	subs := r.subs
	r.subs = nil
	r.proc = nil
	done := r.done
	events := make([]Event, len(r.events))
	copy(events, r.events)
	r.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Detach(); err != nil {
			r.logger.Warn().Err(err).Msg("detach listener")
		}
	}

	r.logger.Info().Str("reason", reason).Int("events", len(events)).Msg("recording stopped")

	var err error
	if r.onComplete != nil {
		if err = r.onComplete(events); err != nil {
			r.logger.Error().Err(err).Msg("save recording")
		}
	}

	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()

	close(done)
	return events, err
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
