package profile

import (
	"fmt"

	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

// KeySource is implemented by external profile units that provide a
// key map.
type KeySource interface {
	GameSpecificKeys() map[string]string
}

// CoordSource is implemented by external profile units that provide
// named coordinates.
type CoordSource interface {
	DefaultCoords() map[string]mouse.Position
}

// PresetSource is implemented by external profile units that provide
// presets.
type PresetSource interface {
	MacroPresets() []Preset
}

// FromSource wraps an external unit as a profile. The unit must implement
// at least one of KeySource, CoordSource or PresetSource; missing members
// are empty. External profiles always get identity hooks. A panic raised
// by the unit is returned as an error.
func FromSource(name string, src any) (p Profile, err error) {
	keys, hasKeys := src.(KeySource)
	coords, hasCoords := src.(CoordSource)
	presets, hasPresets := src.(PresetSource)
	if !hasKeys && !hasCoords && !hasPresets {
		return nil, fmt.Errorf("%w: %T", ErrInvalidSource, src)
	}

	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = fmt.Errorf("%w: %s panicked: %v", ErrInvalidSource, name, r)
		}
	}()

	var opts []StaticOption
	if hasKeys {
		opts = append(opts, WithKeyMap(keys.GameSpecificKeys()))
	}
	if hasCoords {
		opts = append(opts, WithCoords(coords.DefaultCoords()))
	}
	if hasPresets {
		opts = append(opts, WithPresets(presets.MacroPresets()...))
	}
	return NewStatic(name, opts...), nil
}
