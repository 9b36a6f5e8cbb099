package backend

import (
	"sync"
	"time"

	"github.com/ItvordRE/MacroRecorder/internal/input/key"
	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

// Action is one synthesized action recorded by NullBackend.
type Action struct {
	Op     Op
	X, Y   int
	Button mouse.Button
	Key    key.Key
	Text   string
	At     time.Time
}

// NullBackend is an in-memory backend for tests and headless use.
// It logs every synthesized action, tracks a virtual pointer and lets
// callers inject observed input.
type NullBackend struct {
	mu       sync.Mutex
	pointer  mouse.Position
	actions  []Action
	failures map[Op]error
	onAction func(Action)

	clicks listenerSet[ClickEvent]
	keys   listenerSet[key.Identity]
}

// NewNullBackend creates a null backend with the pointer at the origin.
func NewNullBackend() *NullBackend {
	return &NullBackend{failures: make(map[Op]error)}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (b *NullBackend) FailOn(op Op, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// OnAction registers a hook called synchronously after every
// synthesized action is logged.
func (b *NullBackend) OnAction(fn func(Action)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onAction = fn
}

// SetPointer moves the virtual pointer without logging an action.
func (b *NullBackend) SetPointer(x, y int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pointer = mouse.Pos(x, y)
}

// Actions returns a copy of the action log.
func (b *NullBackend) Actions() []Action {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Action, len(b.actions))
	copy(out, b.actions)
	return out
}

// Reset clears the action log.
func (b *NullBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actions = nil
}

// Listeners returns the number of attached click and key listeners.
func (b *NullBackend) Listeners() int {
	return b.clicks.len() + b.keys.len()
}

// InjectClick delivers an observed click to every click listener.
// It returns the number of listeners that accepted it.
func (b *NullBackend) InjectClick(x, y int, button mouse.Button) int {
	return b.clicks.broadcast(ClickEvent{X: x, Y: y, Button: button})
}

// InjectKey delivers an observed key press to every key listener.
// It returns the number of listeners that accepted it.
func (b *NullBackend) InjectKey(id key.Identity) int {
	return b.keys.broadcast(id)
}

// Close detaches every listener.
func (b *NullBackend) Close() {
	b.clicks.detachAll()
	b.keys.detachAll()
}

func (b *NullBackend) SubscribeClicks(h ClickHandler) (Subscription, error) {
	if err := b.failure(OpSubscribeClicks); err != nil {
		return nil, err
	}
	return b.clicks.add(h), nil
}

func (b *NullBackend) SubscribeKeys(h KeyHandler) (Subscription, error) {
	if err := b.failure(OpSubscribeKeys); err != nil {
		return nil, err
	}
	return b.keys.add(h), nil
}

func (b *NullBackend) MovePointer(x, y int) error {
	return b.record(Action{Op: OpMovePointer, X: x, Y: y}, func() {
		b.pointer = mouse.Pos(x, y)
	})
}

func (b *NullBackend) Click(button mouse.Button) error {
	b.mu.Lock()
	pos := b.pointer
	b.mu.Unlock()
	return b.record(Action{Op: OpClick, X: pos.X, Y: pos.Y, Button: button}, nil)
}

func (b *NullBackend) PointerPosition() (mouse.Position, error) {
	if err := b.failure(OpPointerPosition); err != nil {
		return mouse.Position{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pointer, nil
}

func (b *NullBackend) PressAndRelease(k key.Key) error {
	return b.record(Action{Op: OpPressAndRelease, Key: k}, nil)
}

func (b *NullBackend) TypeText(text string) error {
	return b.record(Action{Op: OpTypeText, Text: text}, nil)
}

func (b *NullBackend) failure(op Op) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err, ok := b.failures[op]; ok {
		return &Error{Op: op, Err: err}
	}
	return nil
}

func (b *NullBackend) record(a Action, apply func()) error {
	b.mu.Lock()
	if err, ok := b.failures[a.Op]; ok {
		b.mu.Unlock()
		return &Error{Op: a.Op, Err: err}
	}
	if apply != nil {
		apply()
	}
	a.At = time.Now()
	b.actions = append(b.actions, a)
	hook := b.onAction
	b.mu.Unlock()

	if hook != nil {
		hook(a)
	}
	return nil
}

// Ensure NullBackend implements Backend.
var _ Backend = (*NullBackend)(nil)
