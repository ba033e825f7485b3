package handler

import (
	"errors"
	"net/http"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/bizledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ActingUserHeader carries the identity of the user performing the
// request. Team members act on behalf of their owning account.
const ActingUserHeader = "X-Acting-User-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getActingUserID extracts the acting user ID from the request header
func getActingUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr := c.GetHeader(ActingUserHeader)
	if userIDStr == "" {
		return uuid.Nil, errors.New("acting user ID not found in request")
	}
	return uuid.Parse(userIDStr)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with an explicit status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts service and domain errors to HTTP responses.
// Limit and concurrency errors carry their own status codes; domain
// errors are mapped through the error code table.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var limitErr *metering.LimitExceededError
	if errors.As(err, &limitErr) {
		c.JSON(limitErr.HTTPStatusCode(), dto.NewErrorResponse(dto.ErrCodeLimitExceeded, limitErr.Error()))
		return
	}

	var timeoutErr *metering.ConcurrencyTimeoutError
	if errors.As(err, &timeoutErr) {
		c.JSON(timeoutErr.HTTPStatusCode(), dto.NewErrorResponse(dto.ErrCodeConcurrencyTimeout, timeoutErr.Error()))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, domainErr.Message))
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}
