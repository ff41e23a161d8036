package store

import (
	"errors"
	"fmt"
)

// Validation failures reported by AddTask.
var (
	ErrEmptyTitle     = errors.New("title required")
	ErrEditInProgress = errors.New("save or cancel the current edit first")
)

// Misuse of positional operations.
var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrWrongView       = errors.New("not available in the current view")
	ErrNotEditing      = errors.New("task is not in edit mode")
	ErrClosed          = errors.New("store closed")
)

// ValidationError is a rejected user input. The operation that returned it
// did not change any state.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func indexError(index, length int) error {
	return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, length)
}
