package quotes

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no quote matches the requested id, or when a
// random quote is requested from an empty store.
var ErrNotFound = errors.New("quote not found")

// ValidationError describes a rejected request parameter or payload field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is or wraps a *ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
