// Package services defines the business logic for podcast generation jobs.
// This file centralizes the service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrExhaustedRetries is returned when no unused code could be claimed
	// within the configured number of attempts.
	ErrExhaustedRetries = errors.New("failed to generate unique code")

	// ErrNotFound indicates that no job holds the requested code.
	ErrNotFound = errors.New("podcast not found")

	// ErrStoreUnavailable wraps any failure of the backing store that is not
	// one of the expected outcomes above.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCorruptRecord is returned when a stored row fails schema validation
	// on read.
	ErrCorruptRecord = errors.New("stored podcast record is malformed")

	// ErrInvalidTransition is returned when a result targets a job that has
	// already finished, or carries a status the job cannot move to.
	ErrInvalidTransition = errors.New("podcast cannot change to the requested status")
)

// ValidationError describes a single rejected input field. Reason is safe to
// show to clients.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// unavailable wraps err so it matches ErrStoreUnavailable while keeping the
// driver error in the chain for logs.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
