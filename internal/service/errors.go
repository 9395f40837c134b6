package service

import (
	"errors"
	"fmt"

	"github.com/Kerhoff/hive/internal/repository"
)

var (
	// ErrNotFound covers both missing rows and rows of another family
	ErrNotFound = repository.ErrNotFound
	// ErrForbidden is returned when the admin secret does not match
	ErrForbidden = errors.New("forbidden")
	// ErrResetDisabled is returned when no admin secret is configured
	ErrResetDisabled = errors.New("factory reset is disabled")
)

// ValidationError rejects input before anything is written
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a *ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func notFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}
