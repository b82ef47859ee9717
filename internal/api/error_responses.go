package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/fmuoria/resume-screening-dashboard/internal/errors"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrorCodeInvalidRequest    ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidJSON       ErrorCode = "INVALID_JSON"
	ErrorCodeFileNotFound      ErrorCode = "FILE_NOT_FOUND"
	ErrorCodeCandidateNotFound ErrorCode = "CANDIDATE_NOT_FOUND"
	ErrorCodeNoResults         ErrorCode = "NO_RESULTS"
	ErrorCodeBusy              ErrorCode = "PROCESSING_IN_PROGRESS"
	ErrorCodeRequestTooLarge   ErrorCode = "REQUEST_TOO_LARGE"

	// Server Error Codes (5xx)
	ErrorCodeInternalError    ErrorCode = "INTERNAL_ERROR"
	ErrorCodeProcessingFailed ErrorCode = "PROCESSING_FAILED"
	ErrorCodeExportFailed     ErrorCode = "EXPORT_FAILED"
)

// processingFailedMessage is the only text shown for ranking failures; the
// category goes in the error details.
const processingFailedMessage = "processing failed, try again"

// ErrorDetail provides additional context for an error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError represents a standardized API error response
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIErrorResponse creates a standardized error response
func APIErrorResponse(code ErrorCode, message string, details ...ErrorDetail) *APIError {
	return &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	errorResponse := APIErrorResponse(code, message, details...)

	if requestID, exists := c.Get(requestIDKey); exists {
		if id, ok := requestID.(string); ok {
			errorResponse.RequestID = id
		}
	}

	c.JSON(statusCode, errorResponse)
}

// SendCandidateNotFoundError sends a standardized candidate not found error
func SendCandidateNotFoundError(c *gin.Context, id string) {
	SendError(c, http.StatusNotFound, ErrorCodeCandidateNotFound, "Candidate '"+id+"' not found")
}

// SendBindError reports a request body that could not be decoded
func SendBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		SendError(c, http.StatusRequestEntityTooLarge, ErrorCodeRequestTooLarge, "Request body too large")
		return
	}
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON, "Invalid request body: "+err.Error())
}

// SendDashboardError maps a dashboard error onto a status and error code.
// Ranking failures are never described beyond their category.
func SendDashboardError(c *gin.Context, err error) {
	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		SendError(c, http.StatusUnprocessableEntity, ErrorCodeValidationFailed, verr.Message,
			ErrorDetail{Field: verr.Field, Message: verr.Message, Code: "VALIDATION_ERROR"})
	case errors.Is(err, apperrors.ErrBusy):
		SendError(c, http.StatusConflict, ErrorCodeBusy, "A ranking request is already in progress")
	case errors.Is(err, apperrors.ErrCandidateNotFound):
		SendError(c, http.StatusNotFound, ErrorCodeCandidateNotFound, err.Error())
	case apperrors.IsRemote(err):
		SendError(c, http.StatusBadGateway, ErrorCodeProcessingFailed, processingFailedMessage,
			ErrorDetail{Message: processingFailedMessage, Code: apperrors.Category(err)})
	default:
		SendError(c, http.StatusInternalServerError, ErrorCodeInternalError, processingFailedMessage,
			ErrorDetail{Message: processingFailedMessage, Code: apperrors.Category(err)})
	}
}
