package apierrors

import (
	"callbridge/internal/observability"

	"github.com/gin-gonic/gin"
)

// Package-level logger that uses context for observability
var logger = observability.NewLogger()

// ErrorResponse is the JSON structure returned to API clients for errors
type ErrorResponse struct {
	Error string `json:"error"`          // User-friendly error message
	Code  string `json:"code,omitempty"` // Machine-readable error code
}

// RespondWithError logs the error for correlation and sends a sanitized
// JSON response to the client.
//
//	if err != nil {
//	    apierrors.RespondWithError(c, err)
//	    return
//	}
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr := MapError(err)
	respond(c, apiErr)
}

// RespondWithValidationError handles Gin binding/validation errors.
//
//	var req StartCallRequest
//	if err := c.ShouldBindJSON(&req); err != nil {
//	    apierrors.RespondWithValidationError(c, err)
//	    return
//	}
func RespondWithValidationError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	respond(c, ValidationError(err))
}

func respond(c *gin.Context, apiErr *APIError) {
	ctx := observability.WithFields(c.Request.Context(),
		observability.Field{Key: "status_code", Value: apiErr.StatusCode},
		observability.Field{Key: "error_code", Value: apiErr.Code},
		observability.Field{Key: "error_message", Value: apiErr.Message},
	)
	if apiErr.cause != nil && apiErr.StatusCode >= 500 {
		logger.Error(ctx, "API error response", apiErr.cause)
	} else {
		logger.Info(ctx, "API error response")
	}

	c.AbortWithStatusJSON(apiErr.StatusCode, ErrorResponse{
		Error: apiErr.Message,
		Code:  apiErr.Code,
	})
}
