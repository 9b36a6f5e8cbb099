package macro

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItvordRE/MacroRecorder/internal/input/backend"
	"github.com/ItvordRE/MacroRecorder/internal/input/key"
	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

const waitFor = 2 * time.Second

// remapProcessor rewrites key presses and records PostProcess calls.
type remapProcessor struct {
	keys map[key.Identity]key.Identity
	post atomic.Int32
}

func (p *remapProcessor) PreProcess(e Event) Event {
	if e.IsKeyPress() {
		if to, ok := p.keys[e.Key]; ok {
			e.Key = to
		}
	}
	return e
}

func (p *remapProcessor) PostProcess(e Event) Event {
	p.post.Add(1)
	return p.PreProcess(e)
}

func waitLen(t *testing.T, r *Recorder, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return r.Len() == n }, waitFor, time.Millisecond)
}

func waitDone(t *testing.T, r *Recorder) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(waitFor):
		t.Fatal("recording did not end")
	}
}

func TestRecorderCapturesUntilStopKey(t *testing.T) {
	b := backend.NewNullBackend()

	var saved []Event
	rec := NewRecorder(b, WithOnComplete(func(events []Event) error {
		saved = events
		return nil
	}))
	require.NoError(t, rec.Start(nil))
	assert.Equal(t, StateRecording, rec.State())
	assert.Equal(t, 2, b.Listeners())

	b.InjectClick(10, 20, mouse.ButtonLeft)
	waitLen(t, rec, 1)
	b.InjectKey(key.Rune('w'))
	waitLen(t, rec, 2)
	b.InjectKey(key.Named(key.KeyEnter))
	waitLen(t, rec, 3)
	b.InjectKey(key.Rune('q'))
	waitDone(t, rec)

	assert.Equal(t, StateIdle, rec.State())
	assert.Equal(t, 0, b.Listeners())
	require.NoError(t, rec.Err())

	events := rec.Events()
	require.Len(t, events, 3)
	assert.Equal(t, KindClick, events[0].Kind)
	assert.Equal(t, 10, events[0].X)
	assert.Equal(t, key.Rune('w'), events[1].Key)
	assert.Equal(t, key.Named(key.KeyEnter), events[2].Key)
	assert.True(t, Timed(events))
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Time, events[i-1].Time)
	}
	assert.Equal(t, events, saved)
}

func TestRecorderEscapeStops(t *testing.T) {
	b := backend.NewNullBackend()
	rec := NewRecorder(b)
	require.NoError(t, rec.Start(nil))

	b.InjectKey(key.Named(key.KeyEscape))
	waitDone(t, rec)

	assert.Empty(t, rec.Events())
	assert.Equal(t, 0, b.Listeners())
}

func TestRecorderRejectsSecondStart(t *testing.T) {
	b := backend.NewNullBackend()
	rec := NewRecorder(b)
	require.NoError(t, rec.Start(nil))
	defer rec.Stop()

	b.InjectKey(key.Rune('a'))
	waitLen(t, rec, 1)

	err := rec.Start(nil)
	require.ErrorIs(t, err, ErrAlreadyRecording)
	require.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, 1, rec.Len())
	assert.Equal(t, 2, b.Listeners())
}

func TestRecorderManualStop(t *testing.T) {
	b := backend.NewNullBackend()

	saveErr := errors.New("disk full")
	var calls atomic.Int32
	rec := NewRecorder(b, WithOnComplete(func([]Event) error {
		calls.Add(1)
		return saveErr
	}))

	_, err := rec.Stop()
	require.ErrorIs(t, err, ErrNotRecording)

	require.NoError(t, rec.Start(nil))
	b.InjectClick(1, 1, mouse.ButtonRight)
	waitLen(t, rec, 1)

	events, err := rec.Stop()
	require.ErrorIs(t, err, saveErr)
	require.ErrorIs(t, rec.Err(), saveErr)
	assert.Len(t, events, 1)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, b.Listeners())

	// Events arriving after the transition to idle are dropped.
	b.InjectClick(2, 2, mouse.ButtonLeft)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, rec.Len())

	_, err = rec.Stop()
	require.ErrorIs(t, err, ErrNotRecording)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRecorderStartClearsPrevious(t *testing.T) {
	b := backend.NewNullBackend()
	rec := NewRecorder(b)

	require.NoError(t, rec.Start(nil))
	b.InjectKey(key.Rune('a'))
	waitLen(t, rec, 1)
	_, err := rec.Stop()
	require.NoError(t, err)

	require.NoError(t, rec.Start(nil))
	defer rec.Stop()
	assert.Equal(t, 0, rec.Len())
}

func TestRecorderAttachFailure(t *testing.T) {
	b := backend.NewNullBackend()
	b.FailOn(backend.OpSubscribeKeys, errors.New("no keyboard hook"))

	rec := NewRecorder(b)
	err := rec.Start(nil)

	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, string(backend.OpSubscribeKeys), berr.Op)
	assert.Equal(t, StateIdle, rec.State())
	assert.Equal(t, 0, b.Listeners(), "click listener must be detached again")
}

func TestRecorderAppliesPreProcess(t *testing.T) {
	b := backend.NewNullBackend()
	proc := &remapProcessor{keys: map[key.Identity]key.Identity{
		key.Rune('a'): key.Named(key.KeyF1),
	}}

	rec := NewRecorder(b)
	require.NoError(t, rec.Start(proc))
	b.InjectKey(key.Rune('a'))
	waitLen(t, rec, 1)
	events, err := rec.Stop()
	require.NoError(t, err)

	assert.Equal(t, key.Named(key.KeyF1), events[0].Key)
}

func TestRecorderClampsTimestamps(t *testing.T) {
	b := backend.NewNullBackend()

	var mu sync.Mutex
	times := []time.Time{
		time.Unix(100, 0),
		time.Unix(99, 0),
		time.Unix(101, 0),
	}
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := times[0]
		if len(times) > 1 {
			times = times[1:]
		}
		return t
	}

	rec := NewRecorder(b, WithClock(clock))
	require.NoError(t, rec.Start(nil))
	for i, r := range "abc" {
		b.InjectKey(key.Rune(r))
		waitLen(t, rec, i+1)
	}
	events, err := rec.Stop()
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, 100.0, events[0].Time)
	assert.Equal(t, 100.0, events[1].Time)
	assert.Equal(t, 101.0, events[2].Time)
}

func TestRecorderConcurrentDelivery(t *testing.T) {
	b := backend.NewNullBackend()

	var counts []int
	var mu sync.Mutex
	rec := NewRecorder(b, WithOnEvent(func(n int) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, n)
	}))
	require.NoError(t, rec.Start(nil))

	const n = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range n {
			b.InjectClick(i, i, mouse.ButtonLeft)
		}
	}()
	go func() {
		defer wg.Done()
		for range n {
			b.InjectKey(key.Rune('k'))
		}
	}()
	wg.Wait()

	waitLen(t, rec, 2*n)
	events, err := rec.Stop()
	require.NoError(t, err)

	clicks := 0
	lastX := -1
	for i, e := range events {
		if e.IsClick() {
			clicks++
			assert.Greater(t, e.X, lastX, "clicks keep delivery order")
			lastX = e.X
		}
		if i > 0 {
			assert.GreaterOrEqual(t, e.Time, events[i-1].Time)
		}
	}
	assert.Equal(t, n, clicks)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, counts, 2*n)
}
