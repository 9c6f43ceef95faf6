package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserExists is returned when registration targets an email that is
	// already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound is returned by lookups for unknown emails or ids.
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError reports a user-correctable problem with a request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// StorageError wraps an operational failure in a backing store. Callers map
// it to an opaque message for clients; the wrapped detail is for server logs.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
