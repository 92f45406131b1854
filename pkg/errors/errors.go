// Package errors defines structured error types and error handling utilities
// for the guardrail service. Errors carry a stable code, an HTTP status and
// optional metadata so transport layers can render them without inspecting
// message strings.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/samvit-hq/guardrail/pkg/constants"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// AppError represents a structured error with additional metadata.
type AppError interface {
	error

	// Code returns the stable error code.
	Code() constants.ErrorCode

	// HTTPStatus returns the HTTP status code this error maps to.
	HTTPStatus() int

	// Description returns a human-readable description.
	Description() string

	// Unwrap returns the underlying error for error chain support.
	Unwrap() error

	// WithCause adds a cause error to the error chain.
	WithCause(cause error) AppError

	// WithMetadata adds additional context metadata.
	WithMetadata(key string, value interface{}) AppError

	// Metadata returns all metadata.
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

// baseError is the internal implementation of AppError.
type baseError struct {
	code        constants.ErrorCode
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

// Error implements the error interface.
func (e *baseError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.description
}

// Code returns the stable error code.
func (e *baseError) Code() constants.ErrorCode {
	return e.code
}

// HTTPStatus returns the HTTP status code.
func (e *baseError) HTTPStatus() int {
	return e.httpStatus
}

// Description returns the error description.
func (e *baseError) Description() string {
	return e.description
}

// Unwrap returns the underlying cause error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause error to the error chain.
func (e *baseError) WithCause(cause error) AppError {
	e.cause = cause
	return e
}

// WithMetadata adds additional context metadata.
func (e *baseError) WithMetadata(key string, value interface{}) AppError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// Metadata returns all metadata.
func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// ================================================================================
// Error Constructor
// ================================================================================

// NewError creates a new AppError with the specified parameters.
func NewError(code constants.ErrorCode, httpStatus int, description string, message string) AppError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// ================================================================================
// Store Failure Constructors
// ================================================================================

// ErrStoreUnreachable creates a store_unreachable error. Raised when the
// backing store refuses or drops the connection.
func ErrStoreUnreachable(cause error) AppError {
	return NewError(
		constants.ErrCodeStoreUnreachable,
		http.StatusServiceUnavailable,
		"The backing store could not be reached.",
		fmt.Sprintf("store unreachable: %v", cause),
	).WithCause(cause)
}

// ErrStoreTimeout creates a store_timeout error. Raised when a store
// operation exceeds its deadline.
func ErrStoreTimeout(cause error) AppError {
	return NewError(
		constants.ErrCodeStoreTimeout,
		http.StatusServiceUnavailable,
		"The backing store did not respond in time.",
		fmt.Sprintf("store timeout: %v", cause),
	).WithCause(cause)
}

// ErrScriptMissing creates a script_missing error. Raised when the store
// reports NOSCRIPT for a script that was previously loaded.
func ErrScriptMissing(cause error) AppError {
	return NewError(
		constants.ErrCodeScriptMissing,
		http.StatusServiceUnavailable,
		"A server-side script is no longer cached by the store.",
		fmt.Sprintf("script missing: %v", cause),
	).WithCause(cause)
}

// ErrStoreInternal creates a store_error for any other store-side failure.
func ErrStoreInternal(cause error) AppError {
	return NewError(
		constants.ErrCodeStoreInternal,
		http.StatusServiceUnavailable,
		"The backing store returned an unexpected error.",
		fmt.Sprintf("store error: %v", cause),
	).WithCause(cause)
}

// ================================================================================
// Domain-Specific Error Constructors
// ================================================================================

// ErrRateLimitExceeded creates a rate limit exceeded error.
func ErrRateLimitExceeded(scope string, limit int) AppError {
	return NewError(
		constants.ErrCodeRateLimited,
		http.StatusTooManyRequests,
		"Rate limit exceeded. Please try again later.",
		fmt.Sprintf("Rate limit exceeded for scope '%s': %d requests", scope, limit),
	).WithMetadata("scope", scope).
		WithMetadata("limit", limit)
}

// ErrUnauthorized creates an unauthorized error.
func ErrUnauthorized(message string) AppError {
	return NewError(
		constants.ErrCodeUnauthorized,
		http.StatusUnauthorized,
		"Authentication is required to access this resource.",
		message,
	)
}

// ErrTokenRevoked creates a token revoked error.
func ErrTokenRevoked() AppError {
	return NewError(
		constants.ErrCodeTokenRevoked,
		http.StatusUnauthorized,
		"The presented token has been revoked.",
		"token has been revoked",
	)
}

// ErrInvalidRequest creates an invalid_request error.
func ErrInvalidRequest(message string) AppError {
	return NewError(
		constants.ErrCodeInvalidRequest,
		http.StatusBadRequest,
		"The request is missing a required parameter or includes an invalid parameter value.",
		message,
	)
}

// ErrMissingRequiredParameter creates a missing required parameter error.
func ErrMissingRequiredParameter(paramName string) AppError {
	return ErrInvalidRequest(fmt.Sprintf("Missing required parameter: %s", paramName)).
		WithMetadata("parameter", paramName)
}

// ErrInvalidConfig creates an invalid_config error for a rejected
// configuration field.
func ErrInvalidConfig(field string, reason string) AppError {
	return NewError(
		constants.ErrCodeInvalidConfig,
		http.StatusInternalServerError,
		"The service configuration is invalid.",
		fmt.Sprintf("invalid configuration for '%s': %s", field, reason),
	).WithMetadata("field", field)
}

// ErrNotFound creates a not_found error.
func ErrNotFound(resource string) AppError {
	return NewError(
		constants.ErrCodeNotFound,
		http.StatusNotFound,
		"The requested resource does not exist.",
		fmt.Sprintf("%s not found", resource),
	).WithMetadata("resource", resource)
}

// ErrInternal creates a generic internal error.
func ErrInternal(message string) AppError {
	return NewError(
		constants.ErrCodeInternal,
		http.StatusInternalServerError,
		"An unexpected internal error occurred.",
		message,
	)
}

// ================================================================================
// Error Validation Utilities
// ================================================================================

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr AppError
	return errors.As(err, &appErr)
}

// AsAppError attempts to cast an error to AppError, unwrapping as needed.
func AsAppError(err error) (AppError, bool) {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf extracts the error code from an error chain. Plain errors report
// internal_error.
func CodeOf(err error) constants.ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code()
	}
	return constants.ErrCodeInternal
}

// WrapError wraps a generic error into an AppError.
func WrapError(err error, code constants.ErrorCode, message string) AppError {
	var httpStatus int

	switch code {
	case constants.ErrCodeInvalidRequest:
		httpStatus = http.StatusBadRequest
	case constants.ErrCodeUnauthorized, constants.ErrCodeTokenRevoked:
		httpStatus = http.StatusUnauthorized
	case constants.ErrCodeNotFound:
		httpStatus = http.StatusNotFound
	case constants.ErrCodeRateLimited:
		httpStatus = http.StatusTooManyRequests
	case constants.ErrCodeStoreUnreachable, constants.ErrCodeStoreTimeout,
		constants.ErrCodeScriptMissing, constants.ErrCodeStoreInternal:
		httpStatus = http.StatusServiceUnavailable
	default:
		httpStatus = http.StatusInternalServerError
	}

	return NewError(code, httpStatus, err.Error(), message).WithCause(err)
}

// IsStoreFailure reports whether a code belongs to the store failure class
// that the rate limiter and revocation store degrade gracefully on.
func IsStoreFailure(code constants.ErrorCode) bool {
	switch code {
	case constants.ErrCodeStoreUnreachable, constants.ErrCodeStoreTimeout,
		constants.ErrCodeScriptMissing, constants.ErrCodeStoreInternal:
		return true
	}
	return false
}

// IsRateLimitError checks if an error is related to rate limiting.
func IsRateLimitError(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus() == http.StatusTooManyRequests
	}
	return false
}

// ShouldLogError determines if an error should be logged based on severity.
// Client errors (4xx) are noise except rate limiting.
func ShouldLogError(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		status := appErr.HTTPStatus()
		return status >= 500 || status == http.StatusTooManyRequests
	}
	return true
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse represents the JSON structure for error responses.
type ErrorResponse struct {
	Error            string                 `json:"error"`
	ErrorDescription string                 `json:"error_description"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts an AppError to an ErrorResponse.
func ToErrorResponse(err AppError) *ErrorResponse {
	return &ErrorResponse{
		Error:            string(err.Code()),
		ErrorDescription: err.Description(),
		Metadata:         err.Metadata(),
	}
}

// ToGenericErrorResponse converts any error to an ErrorResponse.
func ToGenericErrorResponse(err error) *ErrorResponse {
	if appErr, ok := AsAppError(err); ok {
		return ToErrorResponse(appErr)
	}

	return &ErrorResponse{
		Error:            string(constants.ErrCodeInternal),
		ErrorDescription: "An unexpected error occurred",
	}
}
