package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a report or user profile does not exist
	// and the operation cannot treat that as a no-op.
	ErrNotFound = errors.New("entity not found")

	// ErrValidationFailed matches every *ValidationError.
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError names the field of a report, user profile or location that
// broke an invariant.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
