package profile

import "errors"

// Profile errors.
var (
	// ErrProfileNotFound is returned by Resolve when no profile matches.
	// It is not fatal; Resolve also returns Base.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrSourceNotFound is returned by a Loader that has no source for an id.
	ErrSourceNotFound = errors.New("profile source not found")

	// ErrInvalidSource is returned when a source implements none of the
	// profile source interfaces.
	ErrInvalidSource = errors.New("invalid profile source")

	// ErrInvalidDocument is returned for a profile document that cannot
	// be decoded.
	ErrInvalidDocument = errors.New("invalid profile document")
)
