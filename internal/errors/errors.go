package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeConfigMissing      = "CONFIG_MISSING"
	ErrCodePersistenceFailure = "PERSISTENCE_FAILURE"
	ErrCodeBusy               = "BUSY"

	// Chat failure family. The user's turn is already persisted when one of
	// these is returned, so the question survives a failed answer.
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeAuthError     = "AUTH_ERROR"
	ErrCodeNetworkError  = "NETWORK_ERROR"
	ErrCodeProviderError = "PROVIDER_ERROR"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string // Error code (e.g., "BUSY", "PERSISTENCE_FAILURE")
	Message string // Human-readable error message
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// CodeOf returns the error code of err, or INTERNAL_ERROR for plain errors.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsChatFailure reports whether err belongs to the chat failure family.
func IsChatFailure(err error) bool {
	switch CodeOf(err) {
	case ErrCodeTimeout, ErrCodeRateLimited, ErrCodeAuthError, ErrCodeNetworkError, ErrCodeProviderError:
		return true
	}
	return false
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  http.StatusNotFound,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  http.StatusBadRequest,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewConfigMissingError reports an absent chat credential. Fatal for chat,
// non-fatal for review, so the server keeps running without it.
func NewConfigMissingError(what string) *AppError {
	return &AppError{
		Code:    ErrCodeConfigMissing,
		Message: fmt.Sprintf("%s is not configured", what),
		Status:  http.StatusServiceUnavailable,
	}
}

// NewPersistenceError reports a failed store write. The turn must not be
// claimed as saved when this is returned.
func NewPersistenceError(op string, err error) *AppError {
	return &AppError{
		Code:    ErrCodePersistenceFailure,
		Message: fmt.Sprintf("failed to persist %s", op),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// NewBusyError rejects a concurrent submit on the same card.
func NewBusyError(cardID string) *AppError {
	return &AppError{
		Code:    ErrCodeBusy,
		Message: fmt.Sprintf("a chat request for card %s is already in flight", cardID),
		Status:  http.StatusConflict,
	}
}

// NewTimeoutError reports a provider call that exceeded its deadline.
func NewTimeoutError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeTimeout,
		Message: "chat provider request timed out",
		Status:  http.StatusGatewayTimeout,
		Err:     err,
	}
}

// NewRateLimitedError reports a provider-side rate limit rejection.
func NewRateLimitedError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: "chat provider rate limit exceeded",
		Status:  http.StatusTooManyRequests,
		Err:     err,
	}
}

// NewAuthError reports a rejected chat credential.
func NewAuthError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeAuthError,
		Message: "chat provider rejected the API key",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// NewNetworkError reports a transport-level failure reaching the provider.
func NewNetworkError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeNetworkError,
		Message: "could not reach the chat provider",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// NewProviderError reports a provider-side failure or malformed response.
func NewProviderError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeProviderError,
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}
