package platformerrors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/voicecall/internal/domain/failure"
)

// HTTPErrorResponse represents the standard error response format.
type HTTPErrorResponse struct {
	Error *HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail contains error details for HTTP responses.
type HTTPErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	Retryable *bool  `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError writes err as a JSON error response. Errors that are not
// PlatformErrors are wrapped as handler errors first.
func WriteError(c *gin.Context, err error, log zerolog.Logger) {
	if err == nil {
		WriteInternalError(c, "unknown error")
		return
	}

	var pe *PlatformError
	if !errors.As(err, &pe) {
		pe = AsError(c.Request.Context(), LayerHandler, err, "request failed")
	}
	LogError(log, pe)

	detail := &HTTPErrorDetail{
		Message:   pe.Message,
		Type:      errorTypeToString(pe.Type),
		Code:      pe.Code,
		RequestID: pe.RequestID,
	}
	if pe.Code != "" {
		retryable := failure.Reason(pe.Code).Retryable()
		detail.Retryable = &retryable
	}
	c.JSON(ErrorTypeToHTTPStatus(pe.Type), HTTPErrorResponse{Error: detail})
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message: message,
			Type:    "not_found_error",
		},
	})
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message: message,
			Type:    "internal_error",
		},
	})
}

// errorTypeToString converts an ErrorType to a snake_case string for API responses.
func errorTypeToString(t ErrorType) string {
	switch t {
	case ErrorTypeNotFound:
		return "not_found_error"
	case ErrorTypeValidation:
		return "validation_error"
	case ErrorTypeConflict:
		return "conflict_error"
	case ErrorTypeForbidden:
		return "forbidden_error"
	case ErrorTypeExternal:
		return "external_error"
	case ErrorTypeTimeout:
		return "timeout_error"
	case ErrorTypeUnavailable:
		return "unavailable_error"
	case ErrorTypeInternal:
		fallthrough
	default:
		return "internal_error"
	}
}
