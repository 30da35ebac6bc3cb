package service

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials indicates an empty username or password at login.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates the request carries no usable session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a session whose role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrPersistence wraps any storage failure.
	ErrPersistence = errors.New("persistence error")
	// ErrCourseNotFound is returned for unknown course ids.
	ErrCourseNotFound = errors.New("course not found")
	// ErrMaterialsDisabled is returned when no object storage bucket is configured.
	ErrMaterialsDisabled = errors.New("course materials are not configured")
)

// ValidationError reports the first rejected field of a form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
