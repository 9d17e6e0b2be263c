package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by stores when a task id is unknown.
var ErrNotFound = errors.New("not found")

// TransportError reports a failed round trip: the backend was unreachable
// or answered with an error status.
type TransportError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: API error %d: %s", e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError reports rejected credentials or an invalid/expired token.
type AuthError struct {
	Op      string
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return e.Op + ": unauthorized"
	}
	return e.Op + ": " + e.Message
}

// IsAuthError reports whether err is or wraps an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(taskID string) error {
	return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
}
