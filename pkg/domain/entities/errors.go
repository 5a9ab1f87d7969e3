package entities

import (
	"errors"
	"fmt"
)

// ErrConcurrentCommitConflict is returned by schedule repositories when the
// inventory snapshot a schedule was computed against is no longer current.
// Callers are expected to re-run scheduling against a fresh snapshot.
var ErrConcurrentCommitConflict = errors.New("schedule commit conflict: inventory snapshot is stale")

// ValidationError reports malformed input rejected at construction time.
// It is fatal to the single object being constructed, never to a whole run.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func validationErrorf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// UnitMismatchError reports arithmetic or comparison across incompatible
// units, e.g. adding grams to liters.
type UnitMismatchError struct {
	Left  Unit
	Right Unit
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("unit mismatch: %s vs %s", e.Left, e.Right)
}
