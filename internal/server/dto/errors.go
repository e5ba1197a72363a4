// Package dto defines API request/response types and error handling.
//
// The dto package is the API contract layer. It does not depend on the domain
// packages; handlers convert between the two (see handlers/convert.go).
//
// Error handling follows a structured pattern:
//   - ErrorCode provides machine-readable error classification
//   - APIError wraps errors with HTTP status codes and details
//   - Constructor functions (NotFound, BadRequest, etc.) create common errors
package dto

import (
	"fmt"
	"maps"
	"net/http"
	"strconv"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrorCodeValidationFailed is returned when input data fails validation.
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrorCodeMissingField is returned when a required field is missing.
	ErrorCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrorCodeParseError is returned when an uploaded file cannot be read.
	ErrorCodeParseError ErrorCode = "PARSE_ERROR"
	// ErrorCodePayloadTooLarge is returned when a body exceeds the size limit.
	ErrorCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"

	// ErrorCodeNotFound is returned when a resource or route is not found.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeTableNotFound is returned when a table is not found.
	ErrorCodeTableNotFound ErrorCode = "TABLE_NOT_FOUND"
	// ErrorCodeConflict is returned when there is a resource conflict.
	ErrorCodeConflict ErrorCode = "CONFLICT"

	// ErrorCodeAuthenticationRequired is returned when the token is missing,
	// invalid or expired.
	ErrorCodeAuthenticationRequired ErrorCode = "AUTHENTICATION_REQUIRED"
	// ErrorCodeAuthorizationDenied is returned when the user's role is
	// insufficient.
	ErrorCodeAuthorizationDenied ErrorCode = "AUTHORIZATION_DENIED"
	// ErrorCodeRateLimitExceeded is returned when a client sends too many
	// requests.
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// ErrorCodeInternal is returned when an unexpected server error occurs.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    ErrorCode      `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	// Message is the text shown to API callers.
	Message() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
	}
}

// WithDetails adds details to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	maps.Copy(e.details, details)
	return e
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Message is the text shown to API callers. It never includes the wrapped
// error.
func (e *APIError) Message() string {
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrorCodeNotFound, resource+" not found")
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeMissingField, "Missing required field: "+fieldName).WithDetail("field", fieldName)
}

// InvalidField creates a 400 Bad Request error for a field with a bad value.
func InvalidField(fieldName, message string) *APIError {
	return BadRequest(fieldName + ": " + message).WithDetail("field", fieldName)
}

// ParseError creates a 422 error for an unreadable upload.
func ParseError(message string) *APIError {
	return NewAPIError(http.StatusUnprocessableEntity, ErrorCodeParseError, message)
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, ErrorCodeConflict, message)
}

// Unauthorized returns a 401 error.
func Unauthorized(message string) *APIError {
	return NewAPIError(http.StatusUnauthorized, ErrorCodeAuthenticationRequired, message)
}

// Forbidden returns a 403 error.
func Forbidden(message string) *APIError {
	return NewAPIError(http.StatusForbidden, ErrorCodeAuthorizationDenied, message)
}

// PayloadTooLarge creates a 413 error.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge, "request body too large").WithDetail("limit", limit)
}

// RateLimitExceeded creates a 429 error.
func RateLimitExceeded(retryAfter int) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrorCodeRateLimitExceeded, "too many requests, retry in "+strconv.Itoa(retryAfter)+"s").WithDetail("retryAfter", retryAfter)
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}
