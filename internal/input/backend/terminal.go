package backend

import (
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/ItvordRE/MacroRecorder/internal/input/key"
	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

// Terminal implements Backend on top of a tcell screen.
//
// Observed input is the terminal's mouse and key event stream.
// Synthesized input is posted back into the same stream, and the pointer
// is a virtual cursor tracked from mouse reports and MovePointer calls.
type Terminal struct {
	screen tcell.Screen

	mu      sync.Mutex
	started bool
	closed  bool
	pointer mouse.Position
	buttons tcell.ButtonMask

	interrupt func()

	clicks listenerSet[ClickEvent]
	keys   listenerSet[key.Identity]

	wg sync.WaitGroup
}

// NewTerminal creates a terminal backend for the controlling terminal.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewTerminalWithScreen(screen), nil
}

// NewTerminalWithScreen creates a terminal backend for an existing screen,
// such as a tcell simulation screen.
func NewTerminalWithScreen(screen tcell.Screen) *Terminal {
	return &Terminal{screen: screen}
}

// Screen returns the underlying tcell screen.
func (t *Terminal) Screen() tcell.Screen {
	return t.screen
}

// OnInterrupt registers fn to be called when Ctrl-C is pressed. The
// terminal runs in raw mode, so Ctrl-C arrives as input instead of a
// signal. Interrupts are never delivered to key listeners.
func (t *Terminal) OnInterrupt(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interrupt = fn
}

// Init initializes the screen, enables mouse reporting and starts the
// event pump. It must be called before any other method.
func (t *Terminal) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.started {
		return nil
	}
	if err := t.screen.Init(); err != nil {
		return err
	}
	t.screen.EnableMouse()
	t.started = true

	t.wg.Add(1)
	go t.pump()
	return nil
}

// Shutdown restores the terminal, stops the pump and detaches every
// listener.
func (t *Terminal) Shutdown() {
	t.mu.Lock()
	if t.closed || !t.started {
		t.closed = true
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	t.screen.Fini()
	t.wg.Wait()

	t.clicks.detachAll()
	t.keys.detachAll()
}

func (t *Terminal) pump() {
	defer t.wg.Done()

	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		t.dispatch(ev)
	}
}

func (t *Terminal) dispatch(ev tcell.Event) {
	switch e := ev.(type) {
	case *tcell.EventMouse:
		x, y := e.Position()
		held := e.Buttons() & (tcell.Button1 | tcell.Button2 | tcell.Button3)

		t.mu.Lock()
		t.pointer = mouse.Pos(x, y)
		pressed := held &^ t.buttons
		t.buttons = held
		t.mu.Unlock()

		if b := convertMouseButton(pressed); b != mouse.ButtonNone {
			t.clicks.broadcast(ClickEvent{X: x, Y: y, Button: b})
		}

	case *tcell.EventKey:
		if e.Key() == tcell.KeyCtrlC {
			t.mu.Lock()
			fn := t.interrupt
			t.mu.Unlock()
			if fn != nil {
				fn()
			}
			return
		}
		if id, ok := convertKey(e); ok {
			t.keys.broadcast(id)
		}
	}
}

func (t *Terminal) ready(op Op) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.closed:
		return &Error{Op: op, Err: ErrClosed}
	case !t.started:
		return &Error{Op: op, Err: ErrNotInitialized}
	}
	return nil
}

func (t *Terminal) post(op Op, ev tcell.Event) error {
	if err := t.screen.PostEvent(ev); err != nil {
		return &Error{Op: op, Err: err}
	}
	return nil
}

func (t *Terminal) SubscribeClicks(h ClickHandler) (Subscription, error) {
	if err := t.ready(OpSubscribeClicks); err != nil {
		return nil, err
	}
	return t.clicks.add(h), nil
}

func (t *Terminal) SubscribeKeys(h KeyHandler) (Subscription, error) {
	if err := t.ready(OpSubscribeKeys); err != nil {
		return nil, err
	}
	return t.keys.add(h), nil
}

func (t *Terminal) MovePointer(x, y int) error {
	if err := t.ready(OpMovePointer); err != nil {
		return err
	}

	t.mu.Lock()
	t.pointer = mouse.Pos(x, y)
	t.mu.Unlock()

	return t.post(OpMovePointer, tcell.NewEventMouse(x, y, tcell.ButtonNone, tcell.ModNone))
}

func (t *Terminal) Click(b mouse.Button) error {
	if err := t.ready(OpClick); err != nil {
		return err
	}

	t.mu.Lock()
	pos := t.pointer
	t.mu.Unlock()

	if err := t.post(OpClick, tcell.NewEventMouse(pos.X, pos.Y, convertToTcellButton(b), tcell.ModNone)); err != nil {
		return err
	}
	return t.post(OpClick, tcell.NewEventMouse(pos.X, pos.Y, tcell.ButtonNone, tcell.ModNone))
}

func (t *Terminal) PointerPosition() (mouse.Position, error) {
	if err := t.ready(OpPointerPosition); err != nil {
		return mouse.Position{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pointer, nil
}

// PressAndRelease posts a key event. Modifier keys have no stand-alone
// representation in a terminal stream and are skipped.
func (t *Terminal) PressAndRelease(k key.Key) error {
	if err := t.ready(OpPressAndRelease); err != nil {
		return err
	}
	if k == key.KeySpace {
		return t.post(OpPressAndRelease, tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone))
	}

	tk, ok := convertToTcellKey(k)
	if !ok {
		return nil
	}
	return t.post(OpPressAndRelease, tcell.NewEventKey(tk, 0, tcell.ModNone))
}

func (t *Terminal) TypeText(text string) error {
	if err := t.ready(OpTypeText); err != nil {
		return err
	}
	for _, r := range text {
		if err := t.post(OpTypeText, tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)); err != nil {
			return err
		}
	}
	return nil
}

// convertKey converts a tcell key event to a key identity.
// Control combinations other than the named keys are not reported.
func convertKey(ev *tcell.EventKey) (key.Identity, bool) {
	if ev.Key() == tcell.KeyRune {
		if ev.Rune() == ' ' {
			return key.Named(key.KeySpace), true
		}
		return key.Rune(ev.Rune()), true
	}

	var k key.Key
	switch ev.Key() {
	case tcell.KeyEscape:
		k = key.KeyEscape
	case tcell.KeyEnter:
		k = key.KeyEnter
	case tcell.KeyTab:
		k = key.KeyTab
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		k = key.KeyBackspace
	case tcell.KeyDelete:
		k = key.KeyDelete
	case tcell.KeyInsert:
		k = key.KeyInsert
	case tcell.KeyHome:
		k = key.KeyHome
	case tcell.KeyEnd:
		k = key.KeyEnd
	case tcell.KeyPgUp:
		k = key.KeyPageUp
	case tcell.KeyPgDn:
		k = key.KeyPageDown
	case tcell.KeyUp:
		k = key.KeyUp
	case tcell.KeyDown:
		k = key.KeyDown
	case tcell.KeyLeft:
		k = key.KeyLeft
	case tcell.KeyRight:
		k = key.KeyRight
	case tcell.KeyPause:
		k = key.KeyPause
	case tcell.KeyPrint:
		k = key.KeyPrintScreen
	default:
		if ev.Key() >= tcell.KeyF1 && ev.Key() <= tcell.KeyF12 {
			k = key.KeyF1 + key.Key(ev.Key()-tcell.KeyF1)
		}
	}

	if k == key.KeyNone {
		return key.Identity{}, false
	}
	return key.Named(k), true
}

// convertToTcellKey converts a named key to a tcell key.
func convertToTcellKey(k key.Key) (tcell.Key, bool) {
	switch k {
	case key.KeyEscape:
		return tcell.KeyEscape, true
	case key.KeyEnter:
		return tcell.KeyEnter, true
	case key.KeyTab:
		return tcell.KeyTab, true
	case key.KeyBackspace:
		return tcell.KeyBackspace2, true
	case key.KeyDelete:
		return tcell.KeyDelete, true
	case key.KeyInsert:
		return tcell.KeyInsert, true
	case key.KeyHome:
		return tcell.KeyHome, true
	case key.KeyEnd:
		return tcell.KeyEnd, true
	case key.KeyPageUp:
		return tcell.KeyPgUp, true
	case key.KeyPageDown:
		return tcell.KeyPgDn, true
	case key.KeyUp:
		return tcell.KeyUp, true
	case key.KeyDown:
		return tcell.KeyDown, true
	case key.KeyLeft:
		return tcell.KeyLeft, true
	case key.KeyRight:
		return tcell.KeyRight, true
	case key.KeyPause:
		return tcell.KeyPause, true
	case key.KeyPrintScreen:
		return tcell.KeyPrint, true
	}
	if k.IsFunctionKey() {
		return tcell.KeyF1 + tcell.Key(k-key.KeyF1), true
	}
	return 0, false
}

// convertMouseButton converts a tcell button mask to a mouse button.
func convertMouseButton(b tcell.ButtonMask) mouse.Button {
	switch {
	case b&tcell.Button1 != 0:
		return mouse.ButtonLeft
	case b&tcell.Button2 != 0:
		return mouse.ButtonRight
	case b&tcell.Button3 != 0:
		return mouse.ButtonMiddle
	default:
		return mouse.ButtonNone
	}
}

func convertToTcellButton(b mouse.Button) tcell.ButtonMask {
	switch b {
	case mouse.ButtonLeft:
		return tcell.Button1
	case mouse.ButtonRight:
		return tcell.Button2
	case mouse.ButtonMiddle:
		return tcell.Button3
	default:
		return tcell.ButtonNone
	}
}

// Ensure Terminal implements Backend.
var _ Backend = (*Terminal)(nil)
