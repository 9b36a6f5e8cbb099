package macro

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ItvordRE/MacroRecorder/internal/input/backend"
	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

// Playback timing defaults.
const (
	DefaultTick        = 100 * time.Millisecond
	DefaultPresetDelay = 500 * time.Millisecond
)

// Clock provides the timers used for playback waits.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithTick sets the wait sub-interval. Cancellation is honored at least
// once per tick.
func WithTick(d time.Duration) PlayerOption {
	return func(p *Player) {
		if d > 0 {
			p.tick = d
		}
	}
}

// WithPresetDelay sets the fixed delay between events of an untimed
// sequence.
func WithPresetDelay(d time.Duration) PlayerOption {
	return func(p *Player) {
		if d >= 0 {
			p.presetDelay = d
		}
	}
}

// WithPlayerClock sets the player's clock.
func WithPlayerClock(c Clock) PlayerOption {
	return func(p *Player) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithPlayerLogger sets the player's logger.
func WithPlayerLogger(l zerolog.Logger) PlayerOption {
	return func(p *Player) {
		p.logger = l
	}
}

// PlayOptions controls a single playback.
type PlayOptions struct {
	// Loop repeats the sequence until playback is stopped.
	Loop bool

	// Processor's PostProcess is applied to every event before it is
	// executed. Nil leaves events unchanged.
	Processor Processor

	// OnIteration is called at the start of each pass, counting from 1.
	OnIteration func(n int)

	// OnEvent is called after each event is executed.
	OnEvent func(i int, e Event)
}

// Result summarizes a finished playback.
type Result struct {
	Iterations int
	Executed   int
	Cancelled  bool
	Restored   bool
}

// Player is a playback session. It replays event sequences against a
// backend, one at a time.
type Player struct {
	backend     backend.Backend
	tick        time.Duration
	presetDelay time.Duration
	clock       Clock
	logger      zerolog.Logger

	mu      sync.Mutex
	playing atomic.Bool
	cancel  context.CancelFunc
}

// NewPlayer creates a player for the given backend.
func NewPlayer(b backend.Backend, opts ...PlayerOption) *Player {
	p := &Player{
		backend:     b,
		tick:        DefaultTick,
		presetDelay: DefaultPresetDelay,
		clock:       realClock{},
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PresetDelay returns the delay between events of an untimed sequence.
func (p *Player) PresetDelay() time.Duration {
	return p.presetDelay
}

// Play replays events synchronously. Cancelling ctx or calling Stop ends
// playback without an error; Result.Cancelled reports it. A backend
// failure aborts every remaining event and iteration.
func (p *Player) Play(ctx context.Context, events []Event, opts PlayOptions) (Result, error) {
	ctx, err := p.begin(ctx, events)
	if err != nil {
		return Result{}, err
	}
	defer p.end()

	return p.run(ctx, events, opts)
}

// Start replays events on a new goroutine and returns once playback has
// begun. done, if non-nil, receives the outcome.
func (p *Player) Start(ctx context.Context, events []Event, opts PlayOptions, done func(Result, error)) error {
	ctx, err := p.begin(ctx, events)
	if err != nil {
		return err
	}

	seq := make([]Event, len(events))
	copy(seq, events)

	go func() {
		res, err := p.run(ctx, seq, opts)
		p.end()
		if done != nil {
			done(res, err)
		}
	}()
	return nil
}

// Stop raises the cancellation flag. It never blocks and is safe to call
// when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// IsPlaying returns true while a playback is live.
func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

func (p *Player) begin(parent context.Context, events []Event) (context.Context, error) {
	if len(events) == 0 {
		return nil, ErrEmptySequence
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing.Load() {
		return nil, ErrAlreadyPlaying
	}

	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.playing.Store(true)
	return ctx, nil
}

func (p *Player) end() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.playing.Store(false)
}

func (p *Player) run(ctx context.Context, events []Event, opts PlayOptions) (Result, error) {
	var res Result
	proc := orNop(opts.Processor)

	start, err := p.backend.PointerPosition()
	if err != nil {
		return res, &BackendError{Op: string(backend.OpPointerPosition), Err: err}
	}

	p.logger.Debug().Int("events", len(events)).Bool("loop", opts.Loop).Msg("playback started")

	for {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		res.Iterations++
		if opts.OnIteration != nil {
			opts.OnIteration(res.Iterations)
		}

		if err := p.iterate(ctx, events, proc, opts, &res); err != nil {
			p.logger.Error().Err(err).Int("executed", res.Executed).Msg("playback failed")
			return res, err
		}
		if res.Cancelled || !opts.Loop {
			break
		}
	}

	if !res.Cancelled {
		if err := p.backend.MovePointer(start.X, start.Y); err != nil {
			return res, &BackendError{Op: string(backend.OpMovePointer), Err: err}
		}
		res.Restored = true
	}

	p.logger.Debug().
		Int("iterations", res.Iterations).
		Int("executed", res.Executed).
		Bool("cancelled", res.Cancelled).
		Msg("playback finished")
	return res, nil
}

// iterate runs one pass over the sequence. Cancellation sets
// res.Cancelled and returns nil.
func (p *Player) iterate(ctx context.Context, events []Event, proc Processor, opts PlayOptions, res *Result) error {
	origin, timed := events[0].Time, events[0].Timed

	for i, raw := range events {
		if ctx.Err() != nil {
			res.Cancelled = true
			return nil
		}

		e := proc.PostProcess(raw)

		if !p.wait(ctx, p.delay(i, e, origin, timed)) || ctx.Err() != nil {
			res.Cancelled = true
			return nil
		}

		if err := p.execute(e); err != nil {
			return err
		}
		res.Executed++
		if opts.OnEvent != nil {
			opts.OnEvent(i, e)
		}
	}
	return nil
}

// delay returns how long to wait before executing event i. Timed events
// wait for their offset from the first event; untimed events wait the
// preset delay.
func (p *Player) delay(i int, e Event, origin float64, timed bool) time.Duration {
	if i == 0 {
		return 0
	}
	if !timed || !e.Timed {
		return p.presetDelay
	}
	offset := e.Time - origin
	if offset <= 0 {
		return 0
	}
	return time.Duration(offset * float64(time.Second))
}

// wait sleeps for d in tick-sized slices. It returns false if ctx was
// cancelled first.
func (p *Player) wait(ctx context.Context, d time.Duration) bool {
	for d > 0 {
		step := min(d, p.tick)
		select {
		case <-ctx.Done():
			return false
		case <-p.clock.After(step):
		}
		d -= step
	}
	return true
}

func (p *Player) execute(e Event) error {
	switch e.Kind {
	case KindClick:
		if err := p.backend.MovePointer(e.X, e.Y); err != nil {
			return &BackendError{Op: string(backend.OpMovePointer), Err: err}
		}
		button := e.Button
		if button == mouse.ButtonNone {
			button = mouse.ButtonLeft
		}
		if err := p.backend.Click(button); err != nil {
			return &BackendError{Op: string(backend.OpClick), Err: err}
		}
	case KindKeyPress:
		err := backend.Synthesize(p.backend, e.Key)
		switch {
		case errors.Is(err, backend.ErrUnknownKey):
			p.logger.Debug().Str("key", e.Key.String()).Msg("skipping key the backend cannot press")
		case err != nil:
			op := backend.OpTypeText
			if e.Key.IsNamed() {
				op = backend.OpPressAndRelease
			}
			return &BackendError{Op: string(op), Err: err}
		}
	}
	return nil
}
