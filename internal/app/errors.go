package app

import (
	"fmt"

	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
)

// Controller errors. Both wrap macro.ErrPrecondition.
var (
	// ErrSessionActive is returned for operations that are rejected while
	// a capture or playback session is live.
	ErrSessionActive = fmt.Errorf("%w: session active", macro.ErrPrecondition)

	// ErrPresetNotFound is returned by LoadPreset for an unknown preset.
	ErrPresetNotFound = fmt.Errorf("%w: preset not found", macro.ErrPrecondition)
)

// OperationError represents a failed file operation of the controller.
type OperationError struct {
	Op     string // Operation name ("save", "load", "autosave")
	Target string // File path
	Err    error  // Underlying error
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
