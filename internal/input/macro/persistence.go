package macro

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ItvordRE/MacroRecorder/internal/input/key"
	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

// DefaultRecordingFile is the file a finished recording is auto-saved to.
const DefaultRecordingFile = "recording.json"

// CreatedLayout is the layout of the "created" field.
const CreatedLayout = "2006-01-02 15:04:05"

// Metadata describes a persisted macro.
type Metadata struct {
	Name    string
	Profile string
	Created time.Time

	// EventCount is recomputed from the actions on load.
	EventCount int
}

// persistedEvent is the JSON form of an Event.
type persistedEvent struct {
	Type   string   `json:"type"`
	X      *int     `json:"x,omitempty"`
	Y      *int     `json:"y,omitempty"`
	Button string   `json:"button,omitempty"`
	Key    string   `json:"key,omitempty"`
	Time   *float64 `json:"time,omitempty"`
}

// persistedMacro is the JSON macro document.
type persistedMacro struct {
	Name        string           `json:"name"`
	Game        string           `json:"game"`
	Created     string           `json:"created"`
	EventsCount int              `json:"events_count"`
	Actions     []persistedEvent `json:"actions"`
}

func toPersistedEvent(e Event) persistedEvent {
	p := persistedEvent{Type: e.Kind.String()}
	switch e.Kind {
	case KindClick:
		x, y := e.X, e.Y
		p.X, p.Y = &x, &y
		p.Button = e.Button.String()
	case KindKeyPress:
		p.Key = e.Key.String()
	}
	if e.Timed {
		t := e.Time
		p.Time = &t
	}
	return p
}

// Marshal encodes events and metadata as a macro document.
// events_count is always written as len(events).
func Marshal(events []Event, meta Metadata) ([]byte, error) {
	doc := persistedMacro{
		Name:        meta.Name,
		Game:        meta.Profile,
		EventsCount: len(events),
		Actions:     make([]persistedEvent, len(events)),
	}
	if !meta.Created.IsZero() {
		doc.Created = meta.Created.Format(CreatedLayout)
	}
	for i, e := range events {
		switch {
		case e.Kind != KindClick && e.Kind != KindKeyPress:
			return nil, fmt.Errorf("marshal action %d: unknown kind %s", i, e.Kind)
		case e.IsClick() && !e.Button.IsValid():
			return nil, fmt.Errorf("marshal action %d: %w", i, mouse.ErrUnknownButton)
		case e.IsKeyPress() && e.Key.IsZero():
			return nil, fmt.Errorf("marshal action %d: empty key", i)
		case e.IsKeyPress() && !key.Encodable(e.Key):
			return nil, fmt.Errorf("marshal action %d: key %q cannot be stored", i, e.Key.Text)
		}
		doc.Actions[i] = toPersistedEvent(e)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to marshal macro: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a macro document. It returns a *FormatError when the
// document is not valid JSON, has no actions list, or contains an action
// that cannot be decoded. Missing metadata fields get zero values and
// unknown fields are ignored.
func Unmarshal(data []byte) ([]Event, Metadata, error) {
	var meta Metadata

	if !gjson.ValidBytes(data) {
		return nil, meta, documentError("not valid JSON", nil)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, meta, documentError("document is not an object", nil)
	}

	actions := root.Get("actions")
	switch {
	case !actions.Exists() || actions.Type == gjson.Null:
		return nil, meta, documentError("missing actions", nil)
	case !actions.IsArray():
		return nil, meta, documentError("actions is not a list", nil)
	}

	items := actions.Array()
	events := make([]Event, 0, len(items))
	for i, item := range items {
		e, err := decodeEvent(i, item)
		if err != nil {
			return nil, meta, err
		}
		events = append(events, e)
	}

	meta.Name = root.Get("name").String()
	meta.Profile = root.Get("game").String()
	meta.EventCount = len(events)
	if created := root.Get("created").String(); created != "" {
		if t, perr := time.ParseInLocation(CreatedLayout, created, time.Local); perr == nil {
			meta.Created = t
		}
	}

	return events, meta, nil
}

func decodeEvent(i int, v gjson.Result) (Event, error) {
	if !v.IsObject() {
		return Event{}, actionError(i, "action is not an object", nil)
	}

	typ := v.Get("type")
	kind, ok := parseKind(typ.String())
	if !ok {
		return Event{}, actionError(i, fmt.Sprintf("unknown type %q", typ.String()), nil)
	}

	var e Event
	switch kind {
	case KindClick:
		x, y := v.Get("x"), v.Get("y")
		if x.Type != gjson.Number || y.Type != gjson.Number {
			return Event{}, actionError(i, "click needs numeric x and y", nil)
		}
		button := mouse.ButtonLeft
		if b := v.Get("button"); b.Exists() && b.Type != gjson.Null {
			var err error
			if button, err = mouse.ParseButton(b.String()); err != nil {
				return Event{}, actionError(i, "bad button", err)
			}
		}
		e = NewClick(int(x.Int()), int(y.Int()), button)

	case KindKeyPress:
		k := v.Get("key")
		if k.Type != gjson.String {
			return Event{}, actionError(i, "key_press needs a key", nil)
		}
		id, err := key.Decode(k.String())
		if err != nil {
			return Event{}, actionError(i, "bad key", err)
		}
		e = NewKeyPress(id)
	}

	switch t := v.Get("time"); {
	case !t.Exists() || t.Type == gjson.Null:
	case t.Type == gjson.Number:
		e = e.WithTime(t.Float())
	default:
		return Event{}, actionError(i, "time is not a number", nil)
	}
	return e, nil
}

// SaveFile writes a macro document to path.
// The file is written atomically using a temporary file and rename.
func SaveFile(path string, events []Event, meta Metadata) error {
	data, err := Marshal(events, meta)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// LoadFile reads a macro document from path.
func LoadFile(path string) ([]Event, Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("failed to read macro file: %w", err)
	}
	events, meta, err := Unmarshal(data)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	return events, meta, nil
}
