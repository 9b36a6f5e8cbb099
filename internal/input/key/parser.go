package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Parse parses a key name into an Identity.
//
// Supported formats:
//   - Canonical named keys: "Key.esc", "Key.page_up", "Key.f5"
//   - Bracketed names: "<Esc>", "<CR>", "<Space>"
//   - Bare names: "Enter", "space", "ctrl" (case-insensitive)
//   - Anything else is printable text: "a", "Q", "@", "hello"
//
// A single character always parses as printable text, so "q" stays a
// printable key even though it is not a named key.
func Parse(spec string) (Identity, error) {
	if spec == "" {
		return Identity{}, ErrEmptySpec
	}

	// Single character, including whitespace
	if utf8.RuneCountInString(spec) == 1 {
		return Printable(spec), nil
	}

	if strings.HasPrefix(spec, NamedPrefix) {
		name := spec[len(NamedPrefix):]
		k := KeyFromName(name)
		if k == KeyNone {
			return Identity{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, name)
		}
		return Named(k), nil
	}

	if strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">") && len(spec) > 2 {
		k := KeyFromName(spec[1 : len(spec)-1])
		if k == KeyNone {
			return Identity{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, spec)
		}
		return Named(k), nil
	}

	if k := KeyFromName(spec); k != KeyNone {
		return Named(k), nil
	}

	// Multi-character text is typed literally
	return Printable(spec), nil
}

// MustParse parses a key name and panics on error.
// Use only for known-valid names in initialization code.
func MustParse(spec string) Identity {
	id, err := Parse(spec)
	if err != nil {
		panic("invalid key specification: " + spec + ": " + err.Error())
	}
	return id
}

// Decode reads the canonical form written by Identity.String. Only the
// "Key." prefix denotes a named key; names without a Key constant decode
// to an unknown identity that keeps the name. Everything else is
// printable text, even when it spells a key name.
func Decode(s string) (Identity, error) {
	if s == "" {
		return Identity{}, ErrEmptySpec
	}
	if name, ok := strings.CutPrefix(s, NamedPrefix); ok && name != "" {
		return Unknown(name), nil
	}
	return Printable(s), nil
}

// Encodable reports whether id survives a String/Decode round trip.
// Printable text starting with the named prefix does not.
func Encodable(id Identity) bool {
	switch {
	case id.IsUnknown():
		return id.Text != "" && KeyFromName(id.Text) == KeyNone
	case id.IsNamed():
		return id.Key.IsValid() && id.Text == ""
	default:
		return id.Text != "" && (!strings.HasPrefix(id.Text, NamedPrefix) || id.Text == NamedPrefix)
	}
}
