// Package errors provides typed errors for the terminal bridge.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error cases.
var (
	// ErrNotFound indicates a resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrUnknownAccount indicates the account id is not in the registry.
	// It matches ErrNotFound with errors.Is.
	ErrUnknownAccount = &AppError{Type: ErrNotFound, Message: "unknown account"}

	// ErrValidation indicates a validation error.
	ErrValidation = errors.New("validation error")

	// ErrTerminalUnavailable indicates the native terminal cannot be reached.
	ErrTerminalUnavailable = errors.New("terminal unavailable")

	// ErrLogin indicates the terminal rejected or did not complete a login.
	ErrLogin = errors.New("login failed")

	// ErrIdentityMismatch indicates the active session after login is not the
	// requested account.
	ErrIdentityMismatch = errors.New("active account does not match requested account")

	// ErrInternal indicates an internal server error.
	ErrInternal = errors.New("internal error")

	// ErrRateLimit indicates too many requests.
	ErrRateLimit = errors.New("rate limit exceeded")
)

// AppError is a structured application error.
type AppError struct {
	// Type is the error type (sentinel error).
	Type error
	// Message is the user-facing error message.
	Message string
	// Details contains additional error details.
	Details map[string]any
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error type.
func (e *AppError) Unwrap() error {
	return e.Type
}

// Is checks if this error matches the target.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Type, target)
}

// New creates a new AppError.
func New(errType error, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(errType error, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// WithDetails adds details to an AppError.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// UnknownAccount creates an unknown account error for the given id.
func UnknownAccount(accountID int64) *AppError {
	return &AppError{
		Type:    ErrUnknownAccount,
		Message: fmt.Sprintf("account %d is not managed by this bridge", accountID),
		Details: map[string]any{"accountId": accountID},
	}
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
	}
}

// ValidationField creates a validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
		Details: map[string]any{"field": field},
	}
}

// TerminalUnavailable creates a terminal unavailable error.
func TerminalUnavailable(cause error) *AppError {
	return &AppError{
		Type:    ErrTerminalUnavailable,
		Message: "terminal unavailable",
		Cause:   cause,
	}
}

// Login creates a login error for the given account.
func Login(accountID int64, cause error) *AppError {
	return &AppError{
		Type:    ErrLogin,
		Message: fmt.Sprintf("login to account %d failed", accountID),
		Details: map[string]any{"accountId": accountID},
		Cause:   cause,
	}
}

// IdentityMismatch creates an identity mismatch error.
func IdentityMismatch(requested, active int64) *AppError {
	return &AppError{
		Type:    ErrIdentityMismatch,
		Message: fmt.Sprintf("requested account %d but terminal is on %d", requested, active),
		Details: map[string]any{"requested": requested, "active": active},
	}
}

// Internal creates an internal error.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrInternal,
		Message: message,
		Cause:   cause,
	}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnknownAccount checks if an error is an unknown account error.
func IsUnknownAccount(err error) bool {
	return errors.Is(err, ErrUnknownAccount)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTerminalUnavailable checks if an error is a terminal unavailable error.
func IsTerminalUnavailable(err error) bool {
	return errors.Is(err, ErrTerminalUnavailable)
}

// IsLoginFailure checks if an error is a login or identity mismatch error.
// Both are treated as a failed login for the account.
func IsLoginFailure(err error) bool {
	return errors.Is(err, ErrLogin) || errors.Is(err, ErrIdentityMismatch)
}

// Code returns a short machine-readable code for an error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnknownAccount):
		return "unknown_account"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrTerminalUnavailable):
		return "terminal_unavailable"
	case errors.Is(err, ErrIdentityMismatch):
		return "identity_mismatch"
	case errors.Is(err, ErrLogin):
		return "login_failed"
	case errors.Is(err, ErrRateLimit):
		return "rate_limited"
	default:
		return "internal"
	}
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrValidation):
		return 400
	case errors.Is(err, ErrRateLimit):
		return 429
	case errors.Is(err, ErrTerminalUnavailable):
		return 503
	case errors.Is(err, ErrLogin), errors.Is(err, ErrIdentityMismatch):
		return 502
	default:
		return 500
	}
}
