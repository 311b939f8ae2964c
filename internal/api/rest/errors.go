package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-holder-indexer/internal/domain"
	"github.com/feral-file/ff-holder-indexer/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest       ErrorCode = "bad_request"
	errCodeNotFound         ErrorCode = "not_found"
	errCodeValidationFailed ErrorCode = "validation_failed"

	// Server errors (5xx)
	errCodeInternalError      ErrorCode = "internal_error"
	errCodeServiceUnavailable ErrorCode = "service_unavailable"
	errCodeTimeout            ErrorCode = "timeout"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	response := errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	}
	if len(details) > 0 {
		response.Error.Details = details[0]
	}

	c.JSON(statusCode, response)
}

func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, errCodeBadRequest, message, details...)
}

func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, http.StatusBadRequest, errCodeValidationFailed, "Validation failed", details)
}

// respondServiceError maps a holder service error to its HTTP response
func respondServiceError(c *gin.Context, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidTopN):
		respondValidationError(c, err.Error())
	case errors.Is(err, domain.ErrSnapshotNotFound):
		respondWithError(c, http.StatusNotFound, errCodeNotFound, "Snapshot not found")
	case errors.Is(err, domain.ErrStoreNotConfigured):
		respondWithError(c, http.StatusServiceUnavailable, errCodeServiceUnavailable, "Snapshot store is not configured")
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(c, http.StatusGatewayTimeout, errCodeTimeout, "Holder scan timed out")
	default:
		logger.ErrorCtx(c.Request.Context(), err, fields...)
		respondWithError(c, http.StatusInternalServerError, errCodeInternalError, "Failed to fetch holders")
	}
}
