package profile

import (
	"maps"

	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

// DefaultName is the display name of the no-op profile.
const DefaultName = "Default"

// Preset is a named, timestamp-free action sequence.
type Preset struct {
	Name    string
	Actions []macro.Event
}

// clone returns a deep copy of the preset with timestamps removed.
func (p Preset) clone() Preset {
	return Preset{Name: p.Name, Actions: macro.StripTimes(p.Actions)}
}

// Profile is a per-application capability bundle. Profiles are immutable;
// accessors return copies.
type Profile interface {
	macro.Processor

	// Name returns the display name.
	Name() string

	// KeyMap maps logical action names to physical keys.
	KeyMap() map[string]string

	// DefaultCoords maps names to screen positions.
	DefaultCoords() map[string]mouse.Position

	// Presets returns the preset sequences in order.
	Presets() []Preset

	// Preset returns the first preset with the given name.
	Preset(name string) (Preset, bool)
}

// Base is the no-op profile: no keys, no coordinates, no presets and
// identity hooks.
type Base struct{}

func (Base) Name() string                             { return DefaultName }
func (Base) KeyMap() map[string]string                { return map[string]string{} }
func (Base) DefaultCoords() map[string]mouse.Position { return map[string]mouse.Position{} }
func (Base) Presets() []Preset                        { return []Preset{} }
func (Base) Preset(string) (Preset, bool)             { return Preset{}, false }
func (Base) PreProcess(e macro.Event) macro.Event     { return e }
func (Base) PostProcess(e macro.Event) macro.Event    { return e }

// Hook transforms one event.
type Hook func(macro.Event) macro.Event

// StaticOption configures a Static profile.
type StaticOption func(*Static)

// WithKeyMap sets the key map.
func WithKeyMap(keys map[string]string) StaticOption {
	return func(s *Static) {
		s.keys = maps.Clone(keys)
	}
}

// WithCoords sets the named coordinates.
func WithCoords(coords map[string]mouse.Position) StaticOption {
	return func(s *Static) {
		s.coords = maps.Clone(coords)
	}
}

// WithPresets sets the presets. Timestamps are removed.
func WithPresets(presets ...Preset) StaticOption {
	return func(s *Static) {
		s.presets = make([]Preset, len(presets))
		for i, p := range presets {
			s.presets[i] = p.clone()
		}
	}
}

// WithPreProcess sets the capture hook.
func WithPreProcess(h Hook) StaticOption {
	return func(s *Static) {
		s.pre = h
	}
}

// WithPostProcess sets the playback hook.
func WithPostProcess(h Hook) StaticOption {
	return func(s *Static) {
		s.post = h
	}
}

// Static is a data-driven profile with optional hooks. Built-in and
// external profiles are both Static.
type Static struct {
	name    string
	keys    map[string]string
	coords  map[string]mouse.Position
	presets []Preset
	pre     Hook
	post    Hook
}

// NewStatic creates a profile. Members not set by an option are empty
// and hooks default to identity.
func NewStatic(name string, opts ...StaticOption) *Static {
	s := &Static{name: name}
	for _, opt := range opts {
		opt(s)
	}
	if s.keys == nil {
		s.keys = map[string]string{}
	}
	if s.coords == nil {
		s.coords = map[string]mouse.Position{}
	}
	return s
}

func (s *Static) Name() string {
	return s.name
}

func (s *Static) KeyMap() map[string]string {
	return maps.Clone(s.keys)
}

func (s *Static) DefaultCoords() map[string]mouse.Position {
	return maps.Clone(s.coords)
}

func (s *Static) Presets() []Preset {
	out := make([]Preset, len(s.presets))
	for i, p := range s.presets {
		out[i] = p.clone()
	}
	return out
}

func (s *Static) Preset(name string) (Preset, bool) {
	for _, p := range s.presets {
		if p.Name == name {
			return p.clone(), true
		}
	}
	return Preset{}, false
}

func (s *Static) PreProcess(e macro.Event) macro.Event {
	if s.pre == nil {
		return e
	}
	return s.pre(e)
}

func (s *Static) PostProcess(e macro.Event) macro.Event {
	if s.post == nil {
		return e
	}
	return s.post(e)
}

// PresetNames returns the names of a profile's presets in order.
func PresetNames(p Profile) []string {
	presets := p.Presets()
	names := make([]string, len(presets))
	for i, pr := range presets {
		names[i] = pr.Name
	}
	return names
}

// Ensure interface compliance.
var (
	_ Profile = Base{}
	_ Profile = (*Static)(nil)
)
