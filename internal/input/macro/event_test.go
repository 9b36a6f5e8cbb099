package macro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ItvordRE/MacroRecorder/internal/input/key"
	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

func TestEventConstructors(t *testing.T) {
	click := NewClick(10, 20, mouse.ButtonRight)
	assert.True(t, click.IsClick())
	assert.False(t, click.Timed)
	assert.Equal(t, mouse.Pos(10, 20), click.Position())

	timed := click.WithTime(1.5)
	assert.True(t, timed.Timed)
	assert.Equal(t, 1.5, timed.Time)
	assert.False(t, click.Timed, "WithTime must not modify the receiver")
	assert.Equal(t, click, timed.WithoutTime())

	press := NewKeyPress(key.Named(key.KeyEnter))
	assert.True(t, press.IsKeyPress())
	assert.Equal(t, "key Key.enter", press.String())
	assert.Equal(t, "click right at (10, 20) @1.500", timed.String())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "click", KindClick.String())
	assert.Equal(t, "key_press", KindKeyPress.String())

	for _, k := range []Kind{KindClick, KindKeyPress} {
		got, ok := parseKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := parseKind("scroll")
	assert.False(t, ok)
}

func TestTimed(t *testing.T) {
	assert.False(t, Timed(nil))
	assert.True(t, Timed(timedRecording()))
	assert.False(t, Timed(comboQWE()))

	mixed := append(timedRecording(), NewKeyPress(key.Rune('x')))
	assert.False(t, Timed(mixed))
	assert.False(t, Timed(StripTimes(timedRecording())))
}

func TestDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), Duration(nil, DefaultPresetDelay))
	assert.Equal(t, 1500*time.Millisecond, Duration(timedRecording(), DefaultPresetDelay))
	assert.Equal(t, 1500*time.Millisecond, Duration(comboQWE(), DefaultPresetDelay))
	assert.Equal(t, 300*time.Millisecond, Duration(comboQWE(), 100*time.Millisecond))
}

func TestDefaultProcessorIsIdentity(t *testing.T) {
	e := NewClick(1, 2, mouse.ButtonLeft).WithTime(3)
	p := orNop(nil)
	assert.Equal(t, e, p.PreProcess(e))
	assert.Equal(t, e, p.PostProcess(e))
}

func TestSeconds(t *testing.T) {
	ts := time.Unix(1700000000, 250_000_000)
	assert.InDelta(t, 1700000000.25, Seconds(ts), 1e-6)
}
