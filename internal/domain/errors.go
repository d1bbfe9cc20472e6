package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrUserNotFound  = errors.New("user not found")
	ErrNoteNotFound  = errors.New("note not found")
	ErrConflict      = errors.New("user already exists with this email")
	ErrOTPInvalid    = errors.New("invalid or expired otp")
	ErrTokenInvalid  = errors.New("token is invalid or expired")
	ErrNotifier      = errors.New("failed to deliver email")
	ErrOAuthProvider = errors.New("oauth provider request failed")
)

// ValidationError describes a user-correctable input problem.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
