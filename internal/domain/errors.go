package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was hit on create.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation marks bad or missing user input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a request that contradicts current state.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized means the caller identity could not be established.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller is known but lacks the role.
	ErrForbidden = errors.New("forbidden")
	// ErrExternalService wraps failures of processor/shipping/notification collaborators.
	ErrExternalService = errors.New("external service error")
	// ErrInvalidSignature is returned when a webhook signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")

	ErrInsufficientStock = fmt.Errorf("insufficient stock: %w", ErrConflict)
	ErrEmptyCart         = fmt.Errorf("cart is empty: %w", ErrValidation)
)

// Invalid builds a validation error carrying a user-facing message.
func Invalid(msg string) error {
	return &ValidationError{Msg: msg}
}

// ValidationError is an ErrValidation with a specific message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }
