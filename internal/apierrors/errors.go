package apierrors

import (
	"fmt"
	"net/http"
)

// Machine-readable error codes returned to API clients
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeMissingDestination  = "MISSING_DESTINATION"
	CodeCallFailed          = "CALL_FAILED"
	CodeTranscriptNotFound  = "TRANSCRIPT_NOT_FOUND"
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeInvalidSignature    = "INVALID_SIGNATURE"
	CodeInternalError       = "INTERNAL_ERROR"
	CodeTelephonyError      = "TELEPHONY_PROVIDER_ERROR"
	CodeContextStoreError   = "CONTEXT_STORE_ERROR"
	CodeRealtimeServiceDown = "REALTIME_SERVICE_ERROR"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
)

// APIError is an error that carries the HTTP status and the sanitized
// message that may be shown to a client.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	cause      error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// BadRequest builds a 400 error
func BadRequest(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, Code: code, Message: message}
}

// NotFound builds a 404 error
func NotFound(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusNotFound, Code: code, Message: message}
}

// Forbidden builds a 403 error
func Forbidden(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusForbidden, Code: code, Message: message}
}

// TooManyRequests builds a 429 error
func TooManyRequests(message string) *APIError {
	return &APIError{StatusCode: http.StatusTooManyRequests, Code: CodeRateLimitExceeded, Message: message}
}

// ServiceUnavailable builds a 503 error that keeps the internal cause for logging
func ServiceUnavailable(code, message string, cause error) *APIError {
	return &APIError{StatusCode: http.StatusServiceUnavailable, Code: code, Message: message, cause: cause}
}

// InternalError builds a sanitized 500 error - never exposes internal details
func InternalError(cause error) *APIError {
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    "An internal error occurred. Please try again later.",
		cause:      cause,
	}
}

// ValidationError builds a 400 error from a binding or validator error
func ValidationError(err error) *APIError {
	return &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidInput,
		Message:    validationMessage(err),
		cause:      err,
	}
}
