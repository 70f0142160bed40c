// Package services holds the application services the HTTP layer and the
// worker dispatch into.
package services

import (
	"errors"
	"fmt"
)

// ValidationError marks a request the caller can fix, as opposed to an
// internal failure. The HTTP layer maps it to a 400-class problem.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}
