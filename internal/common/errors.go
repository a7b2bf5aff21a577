// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")

	// Input validation. Concrete failures are *ValidationError values.
	ErrValidation = errors.New("validation error")

	// Credential errors.
	ErrDuplicateEmail = errors.New("user with this email already exists")
	ErrBadPassword    = errors.New("invalid credentials")
	ErrNotVerified    = errors.New("please verify your email before logging in")

	// OTP errors.
	ErrOTPNotFound = errors.New("invalid otp")
	ErrOTPMismatch = errors.New("invalid otp")
	ErrOTPExpired  = errors.New("otp has expired")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
	ErrRevoked      = errors.New("session has been revoked")

	// Attendance errors.
	ErrAlreadyPunchedIn = errors.New("you have already punched in, please punch out first")
	ErrNotPunchedIn     = errors.New("no punch in record found, please punch in first")

	// Leave errors.
	ErrLeaveAlreadyDecided = errors.New("leave request has already been decided")
)

// ValidationError reports malformed or missing input. It matches
// ErrValidation with errors.Is and carries a client-facing message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError formats a *ValidationError.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
