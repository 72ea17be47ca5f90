package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyAdmin      = errors.New("user is already an admin")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrUnauthenticated   = errors.New("not signed in")
	ErrInvalidInput      = errors.New("invalid input")
)

// StoreError wraps a transport or backing-store failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrStoreUnavailable, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// Unavailable marks err as a store failure unless it already carries one of
// the domain errors.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrAlreadyAdmin, ErrStoreUnavailable} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return &StoreError{Op: op, Err: err}
}

// NotFound returns an ErrNotFound carrying what was looked up.
func NotFound(what, key string) error {
	return fmt.Errorf("%s %q: %w", what, key, ErrNotFound)
}

// Invalid returns an ErrInvalidInput with a user-facing reason.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}
