package handler

import (
	"errors"
	"net/http"

	"github.com/erp/openadmin/internal/domain/shared"
	"github.com/erp/openadmin/internal/infrastructure/logger"
	"github.com/erp/openadmin/internal/interfaces/http/dto"
	"github.com/erp/openadmin/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common response helpers
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a 200 response with the page window
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, firstResult, maxResults int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, firstResult, maxResults))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, message, middleware.GetRequestID(c)))
}

// HandleError answers a failed service call. Service errors map their kind
// onto the status; anything else, and unexpected failures, hide the cause.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := middleware.GetRequestID(c)

	kind := shared.KindUnexpected
	message := "An unexpected error occurred"
	var se *shared.ServiceError
	if errors.As(err, &se) {
		kind = se.Kind
		if kind != shared.KindUnexpected {
			message = se.Error()
		}
	}

	log := logger.FromContext(c.Request.Context())
	status := dto.GetHTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		log.Error("Admin request failed", zap.Error(err), zap.String("kind", string(kind)))
	} else {
		log.Debug("Admin request rejected", zap.Error(err), zap.String("kind", string(kind)))
	}

	resp := dto.NewErrorResponseWithRequestID(dto.ErrorCode(kind), message, requestID)
	resp.Error.Kind = string(kind)
	c.JSON(status, resp)
}
