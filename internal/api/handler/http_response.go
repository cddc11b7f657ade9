package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aurora-banking-core/internal/api/middleware"
	"github.com/aurora-banking-core/internal/apperr"
)

// Response is the standard API response envelope
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          interface{} `json:"meta,omitempty"`
}

// ErrorInfo contains error details in API responses
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PaginationMeta carries statement paging details
type PaginationMeta struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func respond(c *gin.Context, status int, data interface{}, meta interface{}) {
	c.JSON(status, Response{
		Data:          data,
		Meta:          meta,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondOK sends a 200 response with the given payload
func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, data, nil)
}

// RespondOKWithMeta sends a 200 response with payload and paging metadata
func RespondOKWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	respond(c, http.StatusOK, data, meta)
}

// RespondCreated sends a 201 response with the given payload
func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, data, nil)
}

// RespondBadRequest sends a 400 response for malformed request bodies
func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, string(apperr.KindValidation), message)
}

// RespondError maps a domain error to its HTTP status. Errors without a
// kind fall through as internal and hide their cause from the client.
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	message := "An internal server error occurred"
	var appErr *apperr.Error
	if kind != apperr.KindInternal && errors.As(err, &appErr) {
		message = appErr.Message
	}
	respondError(c, statusOf(kind), string(kind), message)
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindPaymentRequired:
		return http.StatusPaymentRequired
	case apperr.KindAccessDenied:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}
