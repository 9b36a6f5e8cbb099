package profile

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ItvordRE/MacroRecorder/internal/input/key"
	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

// documentExtensions lists the supported document extensions in order of
// preference.
var documentExtensions = []string{".toml", ".yaml", ".yml", ".json"}

// IsDocument reports whether a file name has a profile document extension.
func IsDocument(name string) bool {
	return slices.Contains(documentExtensions, strings.ToLower(filepath.Ext(name)))
}

// document is the decoded form of a profile document.
type document struct {
	Name    string                    `toml:"name" yaml:"name" json:"name"`
	Keys    map[string]string         `toml:"keys" yaml:"keys" json:"keys"`
	Coords  map[string]mouse.Position `toml:"coords" yaml:"coords" json:"coords"`
	Presets []documentPreset          `toml:"presets" yaml:"presets" json:"presets"`
}

type documentPreset struct {
	Name    string           `toml:"name" yaml:"name" json:"name"`
	Actions []documentAction `toml:"actions" yaml:"actions" json:"actions"`
}

// documentAction mirrors a macro action. Any time field is ignored
// because presets are timestamp-free.
type documentAction struct {
	Type   string `toml:"type" yaml:"type" json:"type"`
	X      int    `toml:"x" yaml:"x" json:"x"`
	Y      int    `toml:"y" yaml:"y" json:"y"`
	Button string `toml:"button" yaml:"button" json:"button"`
	Key    string `toml:"key" yaml:"key" json:"key"`
}

// Source is a decoded profile document. It implements KeySource,
// CoordSource and PresetSource.
type Source struct {
	Name    string
	Path    string
	keys    map[string]string
	coords  map[string]mouse.Position
	presets []Preset
}

func (s *Source) GameSpecificKeys() map[string]string       { return maps.Clone(s.keys) }
func (s *Source) DefaultCoords() map[string]mouse.Position { return maps.Clone(s.coords) }

func (s *Source) MacroPresets() []Preset {
	out := make([]Preset, len(s.presets))
	for i, p := range s.presets {
		out[i] = p.clone()
	}
	return out
}

// LoadDocument reads and decodes the profile document at path. The format
// is chosen by extension.
func LoadDocument(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile document: %w", err)
	}
	src, err := ParseDocument(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.Path = path
	return src, nil
}

// ParseDocument decodes a profile document. format is a file extension
// such as ".toml", ".yaml" or ".json".
func ParseDocument(data []byte, format string) (*Source, error) {
	var doc document
	var err error

	switch strings.ToLower(format) {
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".json":
		err = json.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidDocument, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	src := &Source{
		Name:    doc.Name,
		keys:    doc.Keys,
		coords:  doc.Coords,
		presets: make([]Preset, 0, len(doc.Presets)),
	}
	for i, dp := range doc.Presets {
		p, err := dp.preset()
		if err != nil {
			return nil, fmt.Errorf("%w: preset %d: %w", ErrInvalidDocument, i, err)
		}
		src.presets = append(src.presets, p)
	}
	return src, nil
}

func (dp documentPreset) preset() (Preset, error) {
	if dp.Name == "" {
		return Preset{}, fmt.Errorf("missing name")
	}

	actions := make([]macro.Event, 0, len(dp.Actions))
	for i, a := range dp.Actions {
		e, err := a.event()
		if err != nil {
			return Preset{}, fmt.Errorf("%q action %d: %w", dp.Name, i, err)
		}
		actions = append(actions, e)
	}
	return Preset{Name: dp.Name, Actions: actions}, nil
}

func (a documentAction) event() (macro.Event, error) {
	switch a.Type {
	case "click":
		button := mouse.ButtonLeft
		if a.Button != "" {
			b, err := mouse.ParseButton(a.Button)
			if err != nil {
				return macro.Event{}, err
			}
			button = b
		}
		return macro.NewClick(a.X, a.Y, button), nil

	case "key_press":
		id, err := key.Parse(a.Key)
		if err != nil {
			return macro.Event{}, err
		}
		return macro.NewKeyPress(id), nil

	default:
		return macro.Event{}, fmt.Errorf("unknown action type %q", a.Type)
	}
}

// Ensure interface compliance.
var (
	_ KeySource    = (*Source)(nil)
	_ CoordSource  = (*Source)(nil)
	_ PresetSource = (*Source)(nil)
)
