package macro

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItvordRE/MacroRecorder/internal/input/backend"
	"github.com/ItvordRE/MacroRecorder/internal/input/key"
	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

func newTestPlayer(b backend.Backend, opts ...PlayerOption) *Player {
	opts = append([]PlayerOption{
		WithTick(5 * time.Millisecond),
		WithPresetDelay(20 * time.Millisecond),
	}, opts...)
	return NewPlayer(b, opts...)
}

func ops(actions []backend.Action) []backend.Op {
	out := make([]backend.Op, len(actions))
	for i, a := range actions {
		out[i] = a.Op
	}
	return out
}

func TestPlayExecutesInOrder(t *testing.T) {
	b := backend.NewNullBackend()
	b.SetPointer(7, 7)
	p := newTestPlayer(b)

	events := []Event{
		NewClick(10, 20, mouse.ButtonLeft).WithTime(50),
		NewKeyPress(key.Named(key.KeyEnter)).WithTime(50.02),
		NewKeyPress(key.Rune('w')).WithTime(50.04),
	}

	var executed []int
	res, err := p.Play(context.Background(), events, PlayOptions{
		OnEvent: func(i int, _ Event) { executed = append(executed, i) },
	})
	require.NoError(t, err)

	assert.Equal(t, Result{Iterations: 1, Executed: 3, Restored: true}, res)
	assert.Equal(t, []int{0, 1, 2}, executed)
	assert.False(t, p.IsPlaying())

	actions := b.Actions()
	assert.Equal(t, []backend.Op{
		backend.OpMovePointer,
		backend.OpClick,
		backend.OpPressAndRelease,
		backend.OpTypeText,
		backend.OpMovePointer,
	}, ops(actions))

	assert.Equal(t, 10, actions[0].X)
	assert.Equal(t, 20, actions[0].Y)
	assert.Equal(t, mouse.ButtonLeft, actions[1].Button)
	assert.Equal(t, key.KeyEnter, actions[2].Key)
	assert.Equal(t, "w", actions[3].Text)
	assert.Equal(t, 7, actions[4].X, "pointer restored")
	assert.Equal(t, 7, actions[4].Y)

	// Each event waits for its offset from the first event.
	assert.GreaterOrEqual(t, actions[2].At.Sub(actions[1].At), 19*time.Millisecond)
	assert.GreaterOrEqual(t, actions[3].At.Sub(actions[2].At), 39*time.Millisecond)
}

func TestPlayUntimedUsesPresetDelay(t *testing.T) {
	b := backend.NewNullBackend()
	p := newTestPlayer(b)

	start := time.Now()
	res, err := p.Play(context.Background(), comboQWE(), PlayOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Executed)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	actions := b.Actions()
	require.Len(t, actions, 4)
	assert.Equal(t, "q", actions[0].Text)
	assert.Equal(t, "w", actions[1].Text)
	assert.Equal(t, "e", actions[2].Text)
	assert.GreaterOrEqual(t, actions[1].At.Sub(actions[0].At), 20*time.Millisecond)
}

func TestPlayDelay(t *testing.T) {
	p := NewPlayer(backend.NewNullBackend(), WithPresetDelay(500*time.Millisecond))

	timed := NewKeyPress(key.Rune('a'))
	tests := []struct {
		name   string
		i      int
		e      Event
		origin float64
		timed  bool
		want   time.Duration
	}{
		{"first event", 0, timed.WithTime(9), 1, true, 0},
		{"offset from origin", 2, timed.WithTime(11.5), 10, true, 1500 * time.Millisecond},
		{"before origin", 1, timed.WithTime(9), 10, true, 0},
		{"untimed", 3, timed, 0, false, 500 * time.Millisecond},
		{"untimed first", 0, timed, 0, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.delay(tt.i, tt.e, tt.origin, tt.timed))
		})
	}
}

func TestPlayStopDuringWait(t *testing.T) {
	const tick = 10 * time.Millisecond
	b := backend.NewNullBackend()
	p := newTestPlayer(b, WithTick(tick))

	events := []Event{
		NewKeyPress(key.Rune('a')).WithTime(0),
		NewKeyPress(key.Rune('b')).WithTime(30),
	}

	done := make(chan Result, 1)
	require.NoError(t, p.Start(context.Background(), events, PlayOptions{}, func(res Result, err error) {
		assert.NoError(t, err)
		done <- res
	}))

	require.Eventually(t, func() bool { return len(b.Actions()) == 1 }, waitFor, time.Millisecond)
	stopped := time.Now()
	p.Stop()

	select {
	case res := <-done:
		// One wait slice plus scheduling slack.
		assert.Less(t, time.Since(stopped), tick+20*time.Millisecond)
		assert.True(t, res.Cancelled)
		assert.False(t, res.Restored)
		assert.Equal(t, 1, res.Executed)
	case <-time.After(waitFor):
		t.Fatal("playback did not stop")
	}

	assert.Equal(t, []backend.Op{backend.OpTypeText}, ops(b.Actions()), "pending event never executes")
	assert.Eventually(t, func() bool { return !p.IsPlaying() }, waitFor, time.Millisecond)
}

func TestPlaySkipsUnknownKeys(t *testing.T) {
	b := backend.NewNullBackend()
	p := newTestPlayer(b)

	events := []Event{
		NewKeyPress(key.Rune('a')),
		NewKeyPress(key.Unknown("media_play_pause")),
		NewKeyPress(key.Named(key.KeyTab)),
	}

	res, err := p.Play(context.Background(), events, PlayOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Executed)

	assert.Equal(t, []backend.Op{
		backend.OpTypeText,
		backend.OpPressAndRelease,
		backend.OpMovePointer,
	}, ops(b.Actions()))
}

func TestPlayLoopsUntilStopped(t *testing.T) {
	b := backend.NewNullBackend()
	p := newTestPlayer(b)

	events := []Event{
		NewKeyPress(key.Rune('1')).WithTime(0),
		NewKeyPress(key.Rune('2')).WithTime(0.01),
		NewKeyPress(key.Rune('3')).WithTime(0.02),
	}

	var iterations atomic.Int32
	done := make(chan Result, 1)
	require.NoError(t, p.Start(context.Background(), events, PlayOptions{
		Loop:        true,
		OnIteration: func(n int) { iterations.Store(int32(n)) },
	}, func(res Result, _ error) { done <- res }))

	require.Eventually(t, func() bool { return iterations.Load() >= 3 }, waitFor, time.Millisecond)
	p.Stop()

	res := <-done
	assert.True(t, res.Cancelled)
	assert.GreaterOrEqual(t, res.Iterations, 3)
	assert.GreaterOrEqual(t, res.Executed, 6)
}

func TestPlayBackendErrorAborts(t *testing.T) {
	b := backend.NewNullBackend()
	b.FailOn(backend.OpPressAndRelease, errors.New("injection refused"))
	p := newTestPlayer(b)

	events := []Event{
		NewKeyPress(key.Rune('a')),
		NewKeyPress(key.Named(key.KeyTab)),
		NewKeyPress(key.Rune('b')),
	}

	res, err := p.Play(context.Background(), events, PlayOptions{Loop: true})

	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, string(backend.OpPressAndRelease), berr.Op)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 1, res.Executed)
	assert.False(t, res.Restored)
	assert.False(t, p.IsPlaying())
	assert.Len(t, b.Actions(), 1)
}

func TestPlayPointerPositionError(t *testing.T) {
	b := backend.NewNullBackend()
	b.FailOn(backend.OpPointerPosition, errors.New("no display"))
	p := newTestPlayer(b)

	_, err := p.Play(context.Background(), comboQWE(), PlayOptions{})
	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.Empty(t, b.Actions())
	assert.False(t, p.IsPlaying())
}

func TestPlayPreconditions(t *testing.T) {
	b := backend.NewNullBackend()
	p := newTestPlayer(b)

	_, err := p.Play(context.Background(), nil, PlayOptions{})
	require.ErrorIs(t, err, ErrEmptySequence)
	require.ErrorIs(t, err, ErrPrecondition)

	long := []Event{
		NewKeyPress(key.Rune('a')).WithTime(0),
		NewKeyPress(key.Rune('b')).WithTime(60),
	}
	done := make(chan struct{})
	require.NoError(t, p.Start(context.Background(), long, PlayOptions{}, func(Result, error) { close(done) }))
	assert.True(t, p.IsPlaying())

	_, err = p.Play(context.Background(), comboQWE(), PlayOptions{})
	require.ErrorIs(t, err, ErrAlreadyPlaying)

	p.Stop()
	<-done
}

func TestPlayAppliesPostProcess(t *testing.T) {
	b := backend.NewNullBackend()
	p := newTestPlayer(b)
	proc := &remapProcessor{keys: map[key.Identity]key.Identity{
		key.Rune('q'): key.Named(key.KeyF1),
	}}

	res, err := p.Play(context.Background(), comboQWE(), PlayOptions{Processor: proc})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Executed)
	assert.Equal(t, int32(3), proc.post.Load())

	actions := b.Actions()
	assert.Equal(t, backend.OpPressAndRelease, actions[0].Op)
	assert.Equal(t, key.KeyF1, actions[0].Key)
}

func TestPlayContextCancel(t *testing.T) {
	b := backend.NewNullBackend()
	p := newTestPlayer(b)

	ctx, cancel := context.WithCancel(context.Background())
	b.OnAction(func(backend.Action) { cancel() })

	res, err := p.Play(ctx, comboQWE(), PlayOptions{Loop: true})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 1, res.Executed)
}
