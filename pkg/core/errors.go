package core

import (
	"fmt"
)

// Error represents a failure surfaced by the tutor client.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrDeviceUnavailable ErrorType = "device_unavailable"
	ErrUploadFailure     ErrorType = "upload_failure"
	ErrNetworkFailure    ErrorType = "network_failure"
	ErrValidation        ErrorType = "validation_failure"
	ErrAuthentication    ErrorType = "authentication_error"
	ErrNotFound          ErrorType = "not_found_error"
	ErrRateLimit         ErrorType = "rate_limit_error"
	ErrAPI               ErrorType = "api_error"
)

// NewDeviceUnavailableError reports a denied or missing microphone device.
func NewDeviceUnavailableError(message string, cause error) *Error {
	return &Error{
		Type:    ErrDeviceUnavailable,
		Message: message,
		Cause:   cause,
	}
}

// NewUploadError reports a failed artifact upload.
func NewUploadError(message string, cause error) *Error {
	return &Error{
		Type:    ErrUploadFailure,
		Message: message,
		Cause:   cause,
	}
}

// NewNetworkError reports a failed start/submit/send/poll round trip.
func NewNetworkError(message string, cause error) *Error {
	return &Error{
		Type:    ErrNetworkFailure,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError reports missing or malformed input caught before any
// request is issued.
func NewValidationError(message string) *Error {
	return &Error{
		Type:    ErrValidation,
		Message: message,
	}
}

// NewValidationErrorWithParam reports a validation failure on one field.
func NewValidationErrorWithParam(message, param string) *Error {
	return &Error{
		Type:    ErrValidation,
		Message: message,
		Param:   param,
	}
}

// NewAuthenticationError reports a credential failure that survived renewal.
func NewAuthenticationError(message string) *Error {
	return &Error{
		Type:    ErrAuthentication,
		Message: message,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return &Error{
		Type:    ErrNotFound,
		Message: message,
	}
}

// NewAPIError creates a generic API error.
func NewAPIError(message string) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
	}
}

// IsRetryable returns true if the error may succeed on a later attempt
// without user action. Only idempotent reads are ever retried automatically.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrRateLimit, ErrNetworkFailure, ErrAPI:
		return true
	default:
		return false
	}
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}
