package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")
	ErrTooManyAttempts    = errors.New("too many attempts")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func newValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// notFoundOr maps a missing row to ErrNotFound and leaves other errors alone.
func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
