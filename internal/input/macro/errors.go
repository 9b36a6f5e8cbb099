package macro

import (
	"errors"
	"fmt"
)

// ErrPrecondition is the root of errors returned when an operation is
// not allowed in the current state. No state changes when it is returned.
var ErrPrecondition = errors.New("precondition violated")

// Session state errors.
var (
	ErrAlreadyRecording = fmt.Errorf("%w: already recording", ErrPrecondition)
	ErrNotRecording     = fmt.Errorf("%w: not recording", ErrPrecondition)
	ErrAlreadyPlaying   = fmt.Errorf("%w: already playing", ErrPrecondition)
	ErrEmptySequence    = fmt.Errorf("%w: empty event sequence", ErrPrecondition)
)

// BackendError reports a failure of the input backend during capture
// attach or playback.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("input backend: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// FormatError reports a malformed macro document.
type FormatError struct {
	// Index is the position of the offending action, or -1 when the
	// problem is with the document itself.
	Index  int
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "invalid macro document"
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s: action %d", msg, e.Index)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func documentError(reason string, err error) *FormatError {
	return &FormatError{Index: -1, Reason: reason, Err: err}
}

func actionError(i int, reason string, err error) *FormatError {
	return &FormatError{Index: i, Reason: reason, Err: err}
}
