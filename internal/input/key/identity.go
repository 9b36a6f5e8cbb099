package key

import "fmt"

// NamedPrefix marks a named key in the canonical string form.
const NamedPrefix = "Key."

// Identity is the canonical identity of a pressed key.
// Printable identities set only Text; named identities set only Key,
// except KeyUnknown, which keeps the key's name in Text.
// Identity values are comparable.
type Identity struct {
	// Key is the named key, or KeyNone for printable input.
	Key Key

	// Text is the printable text for non-named keys, or the name of an
	// unknown named key. Normally a single character.
	Text string
}

// Named creates an identity for a named key.
func Named(k Key) Identity {
	return Identity{Key: k}
}

// Printable creates an identity for printable text.
func Printable(text string) Identity {
	return Identity{Text: text}
}

// Unknown creates an identity for a named key this package does not
// define, such as "media_play_pause" read from a recording. Names of
// known keys return the matching named identity.
func Unknown(name string) Identity {
	if k := KeyFromName(name); k != KeyNone {
		return Named(k)
	}
	if name == "" {
		return Identity{}
	}
	return Identity{Key: KeyUnknown, Text: name}
}

// Rune creates an identity for a single printable character.
func Rune(r rune) Identity {
	return Identity{Text: string(r)}
}

// IsNamed returns true if the identity denotes a named key.
func (id Identity) IsNamed() bool {
	return id.Key != KeyNone
}

// IsUnknown returns true for a named key without a Key constant.
func (id Identity) IsUnknown() bool {
	return id.Key == KeyUnknown
}

// IsZero returns true for the empty identity.
func (id Identity) IsZero() bool {
	return id.Key == KeyNone && id.Text == ""
}

// IsStopSignal returns true for the keys that end a recording:
// a printable 'q' or Escape.
func (id Identity) IsStopSignal() bool {
	if id.IsNamed() {
		return id.Key == KeyEscape
	}
	return id.Text == "q"
}

// String returns the canonical form: the text itself for printable
// keys and "Key.<name>" for named keys.
func (id Identity) String() string {
	if id.IsUnknown() {
		return NamedPrefix + id.Text
	}
	if id.IsNamed() {
		return NamedPrefix + id.Key.String()
	}
	return id.Text
}

// GoString implements fmt.GoStringer for debugging.
func (id Identity) GoString() string {
	if id.IsUnknown() {
		return fmt.Sprintf("key.Unknown(%q)", id.Text)
	}
	if id.IsNamed() {
		return fmt.Sprintf("key.Named(%s)", id.Key)
	}
	return fmt.Sprintf("key.Printable(%q)", id.Text)
}
