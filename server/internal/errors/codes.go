// Package errors defines the service error taxonomy. The router maps
// these codes onto HTTP statuses; everything below the router reports
// failures through them.
package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for service operations.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeConflict indicates a uniqueness conflict (username/email taken).
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeForbidden indicates an authenticated but disallowed request.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrCodeNotFound indicates the requested object does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeProviderFailed indicates an external provider call failed.
	ErrCodeProviderFailed ErrorCode = "PROVIDER_FAILED"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// ServiceError represents a structured error for service operations.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Convenience constructors for common error types.

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeInvalidArgument, Message: msg}
}

// Conflict creates a uniqueness conflict error.
func Conflict(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeConflict, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeForbidden, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeNotFound, Message: msg}
}

// ProviderFailed creates a provider failure error carrying the
// provider's message.
func ProviderFailed(msg string, cause error) *ServiceError {
	return &ServiceError{Code: ErrCodeProviderFailed, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *ServiceError {
	return &ServiceError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if svcErr, ok := err.(*ServiceError); ok {
		return svcErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a ServiceError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if svcErr, ok := err.(*ServiceError); ok {
		return svcErr.Code
	}
	return defaultCode
}
