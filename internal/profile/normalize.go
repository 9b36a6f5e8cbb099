package profile

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeID converts a profile name to the identifier used to match
// external sources: NFKC normalized, case folded, letters and digits
// only. "Dota 2" becomes "dota2" and "Blade&Soul" becomes "bladesoul".
func NormalizeID(name string) string {
	s := norm.NFKC.String(name)
	s = cases.Fold().String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// IsDefaultName reports whether name selects the no-op profile: an
// empty name, "default" or "none", ignoring case and surrounding space.
func IsDefaultName(name string) bool {
	switch cases.Fold().String(strings.TrimSpace(name)) {
	case "", "default", "none":
		return true
	}
	return false
}
