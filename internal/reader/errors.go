package reader

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrMalformed matches every *MalformedError.
	ErrMalformed = errors.New("malformed data")
)

// NotFoundError is returned when a requested resource does not exist: the
// primary store, the settings archive, or a conversation table.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// MalformedError is returned when a required resource exists but cannot be
// decoded.
type MalformedError struct {
	Resource string
	Err      error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s: %v", e.Resource, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}
