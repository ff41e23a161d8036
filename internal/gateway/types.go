package gateway

import (
	"errors"
	"fmt"
)

// Task is a task record in the remote store's shape.
type Task struct {
	ID        string // empty when the remote store did not assign one
	Title     string
	Completed bool
}

// Operation names used in NetworkError.
const (
	OpList   = "list tasks"
	OpCreate = "create task"
)

// NetworkError reports any transport, HTTP or decoding failure of a gateway call.
type NetworkError struct {
	Op     string
	Status int // HTTP status when the server answered, 0 otherwise
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Wrap returns err as a *NetworkError for op. A nil err stays nil and an
// existing NetworkError is returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return err
	}
	return &NetworkError{Op: op, Err: err}
}

// IsNetworkError reports whether err is or wraps a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
