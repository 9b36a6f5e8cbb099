// Package backend provides the input device abstraction used for
// recording and replaying macros.
//
// A Backend does two jobs: it delivers observed mouse clicks and key
// presses to subscribed handlers, and it synthesizes pointer moves,
// clicks and key presses during playback.
//
// Handlers run on a goroutine owned by their subscription, never on the
// caller's goroutine. Detaching a subscription stops further deliveries
// but does not wait for a handler that is already running.
package backend

import (
	"errors"
	"fmt"

	"github.com/ItvordRE/MacroRecorder/internal/input/key"
	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

// Common errors.
var (
	// ErrClosed is returned when the backend has been shut down.
	ErrClosed = errors.New("backend closed")

	// ErrNotInitialized is returned when the backend is used before Init.
	ErrNotInitialized = errors.New("backend not initialized")

	// ErrUnknownKey is returned by Synthesize for a named key without a
	// Key constant. Nothing is sent to the backend.
	ErrUnknownKey = errors.New("unknown key")
)

// Op names a backend operation. It is used in errors and in the
// NullBackend action log.
type Op string

// Backend operations.
const (
	OpSubscribeClicks Op = "subscribe_clicks"
	OpSubscribeKeys   Op = "subscribe_keys"
	OpMovePointer     Op = "move_pointer"
	OpClick           Op = "click"
	OpPointerPosition Op = "pointer_position"
	OpPressAndRelease Op = "press_and_release"
	OpTypeText        Op = "type_text"
)

// Error reports a failure of the underlying input facility.
type Error struct {
	Op  Op
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// ClickEvent is an observed mouse button press.
type ClickEvent struct {
	X, Y   int
	Button mouse.Button
}

// ClickHandler receives observed clicks.
type ClickHandler func(ClickEvent)

// KeyHandler receives observed key presses.
type KeyHandler func(key.Identity)

// Subscription is an attached listener.
type Subscription interface {
	// Detach stops deliveries to the handler. It is safe to call more
	// than once and never blocks on an in-flight handler.
	Detach() error
}

// Backend is the host input facility.
type Backend interface {
	// SubscribeClicks attaches a click listener.
	SubscribeClicks(h ClickHandler) (Subscription, error)

	// SubscribeKeys attaches a key press listener.
	SubscribeKeys(h KeyHandler) (Subscription, error)

	// MovePointer moves the pointer to the given position.
	MovePointer(x, y int) error

	// Click presses and releases a mouse button at the current position.
	Click(b mouse.Button) error

	// PointerPosition returns the current pointer position.
	PointerPosition() (mouse.Position, error)

	// PressAndRelease taps a named key.
	PressAndRelease(k key.Key) error

	// TypeText types literal text.
	TypeText(text string) error
}

// Synthesize performs the action for a key identity: named keys are
// tapped and printable keys are typed as text.
func Synthesize(b Backend, id key.Identity) error {
	if id.IsNamed() {
		if !id.Key.IsValid() {
			return fmt.Errorf("%w: %s", ErrUnknownKey, id)
		}
		return b.PressAndRelease(id.Key)
	}
	return b.TypeText(id.Text)
}
