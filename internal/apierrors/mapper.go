package apierrors

import (
	"errors"
	"net/http"
	"strings"

	"callbridge/internal/voicecall/processor"
)

// MapError converts processor errors to APIErrors.
//
// If the error is already an APIError, it returns it as-is.
// If the error is unknown, it returns a sanitized InternalError (500).
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, processor.ErrMissingDestination):
		return BadRequest(CodeMissingDestination, "Destination phone number is required")

	case errors.Is(err, processor.ErrTranscriptNotFound):
		return NotFound(CodeTranscriptNotFound, "No transcript for this call")

	case errors.Is(err, processor.ErrCallFailed):
		return &APIError{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeCallFailed,
			Message:    "Failed to initiate call",
			cause:      err,
		}

	default:
		return mapExternalServiceError(err)
	}
}

// mapExternalServiceError identifies external service failures that
// surfaced without a processor sentinel.
func mapExternalServiceError(err error) *APIError {
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "twilio") {
		return ServiceUnavailable(
			CodeTelephonyError,
			"Telephony provider is temporarily unavailable. Please try again later.",
			err,
		)
	}

	if strings.Contains(errMsg, "redis") || strings.Contains(errMsg, "context store") {
		return ServiceUnavailable(
			CodeContextStoreError,
			"Call context storage is temporarily unavailable. Please try again later.",
			err,
		)
	}

	if strings.Contains(errMsg, "realtime") || strings.Contains(errMsg, "openai") {
		return ServiceUnavailable(
			CodeRealtimeServiceDown,
			"AI service is temporarily unavailable. Please try again later.",
			err,
		)
	}

	return InternalError(err)
}
