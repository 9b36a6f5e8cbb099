package macro

import (
	"fmt"
	"time"

	"github.com/ItvordRE/MacroRecorder/internal/input/key"
	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

// Kind identifies the variant of an Event.
type Kind uint8

const (
	// KindClick is a mouse button click at a screen position.
	KindClick Kind = iota + 1
	// KindKeyPress is a key press.
	KindKeyPress
)

// String returns the persisted name of the kind.
func (k Kind) String() string {
	switch k {
	case KindClick:
		return "click"
	case KindKeyPress:
		return "key_press"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// parseKind returns the kind for a persisted type name.
func parseKind(s string) (Kind, bool) {
	switch s {
	case "click":
		return KindClick, true
	case "key_press":
		return KindKeyPress, true
	}
	return 0, false
}

// Event is one captured or scripted input action.
// Events are comparable values.
type Event struct {
	Kind Kind

	// Click fields
	X, Y   int
	Button mouse.Button

	// Key press field
	Key key.Identity

	// Time is the capture time in seconds. It is meaningful only when
	// Timed is true.
	Time  float64
	Timed bool
}

// NewClick creates an untimed click event.
func NewClick(x, y int, button mouse.Button) Event {
	return Event{Kind: KindClick, X: x, Y: y, Button: button}
}

// NewKeyPress creates an untimed key press event.
func NewKeyPress(id key.Identity) Event {
	return Event{Kind: KindKeyPress, Key: id}
}

// WithTime returns a copy of the event timestamped at t seconds.
func (e Event) WithTime(t float64) Event {
	e.Time = t
	e.Timed = true
	return e
}

// WithoutTime returns a copy of the event with no timestamp.
func (e Event) WithoutTime() Event {
	e.Time = 0
	e.Timed = false
	return e
}

// IsClick returns true for click events.
func (e Event) IsClick() bool {
	return e.Kind == KindClick
}

// IsKeyPress returns true for key press events.
func (e Event) IsKeyPress() bool {
	return e.Kind == KindKeyPress
}

// Position returns the click position.
func (e Event) Position() mouse.Position {
	return mouse.Pos(e.X, e.Y)
}

// String returns a short human-readable description.
func (e Event) String() string {
	var s string
	switch e.Kind {
	case KindClick:
		s = fmt.Sprintf("click %s at (%d, %d)", e.Button, e.X, e.Y)
	case KindKeyPress:
		s = fmt.Sprintf("key %s", e.Key)
	default:
		s = e.Kind.String()
	}
	if e.Timed {
		s += fmt.Sprintf(" @%.3f", e.Time)
	}
	return s
}

// Processor transforms events as they are captured or replayed.
// Profiles implement it.
type Processor interface {
	// PreProcess is applied to each event before it is appended to a
	// recording.
	PreProcess(Event) Event

	// PostProcess is applied to each event before it is replayed.
	PostProcess(Event) Event
}

// nopProcessor is the identity Processor.
type nopProcessor struct{}

func (nopProcessor) PreProcess(e Event) Event  { return e }
func (nopProcessor) PostProcess(e Event) Event { return e }

func orNop(p Processor) Processor {
	if p == nil {
		return nopProcessor{}
	}
	return p
}

// Timed returns true if the sequence is non-empty and every event
// carries a timestamp.
func Timed(events []Event) bool {
	if len(events) == 0 {
		return false
	}
	for _, e := range events {
		if !e.Timed {
			return false
		}
	}
	return true
}

// StripTimes returns a copy of the events without timestamps.
func StripTimes(events []Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.WithoutTime()
	}
	return out
}

// Duration estimates how long one pass over the sequence takes.
// For timed sequences it is the span between the first and last event.
// For untimed sequences it is len(events) times presetDelay. The estimate
// is for display only; playback timing is computed per event.
func Duration(events []Event, presetDelay time.Duration) time.Duration {
	if len(events) == 0 {
		return 0
	}
	if !Timed(events) {
		return time.Duration(len(events)) * presetDelay
	}
	span := events[len(events)-1].Time - events[0].Time
	if span < 0 {
		return 0
	}
	return time.Duration(span * float64(time.Second))
}

// Seconds converts a wall-clock time to the float seconds used in
// event timestamps.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
