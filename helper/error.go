package helper

import (
	"errors"
	"fmt"
)

var (
	// ErrGraphUnavailable is returned when the graph store cannot be reached.
	ErrGraphUnavailable = errors.New("graph store unavailable")
	// ErrValidation marks input rejected before any store call.
	ErrValidation = errors.New("validation failed")
	// ErrNotConfirmed is returned by destructive operations called without confirmation.
	ErrNotConfirmed = errors.New("operation requires explicit confirmation")
)

// NewError wraps err with the name of the operation that failed.
func NewError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// NewValidationError returns an ErrValidation naming the invalid field.
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}
