package handler

import (
	"errors"
	"net/http"

	"rocket-backend/internal/dashboard"
	"rocket-backend/internal/model"
	"rocket-backend/internal/service"
	"rocket-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// respondError 按错误类型映射状态码；响应体只保证 kind/reason，文案不属于约定
func respondError(c *gin.Context, err error) {
	status, body := describeHTTPError(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	} else {
		logger.Debugf("%s %s rejected: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, body)
}

func describeHTTPError(err error) (int, model.ErrorResponse) {
	body := model.ErrorResponse{Error: err.Error()}

	var ve *dashboard.ValidationError
	var se *dashboard.ServiceError
	switch {
	case errors.As(err, &ve):
		body.Kind = "validation"
		body.Reason = string(ve.Reason)
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, dashboard.ErrBusy):
		body.Kind = "busy"
		return http.StatusConflict, body
	case errors.Is(err, dashboard.ErrAuthRequired):
		body.Kind = "auth"
		return http.StatusUnauthorized, body
	case errors.Is(err, service.ErrNoSession), errors.Is(err, dashboard.ErrSessionClosed):
		body.Kind = "no_session"
		return http.StatusNotFound, body
	case errors.As(err, &se):
		body.Kind = "service"
		body.Reason = string(se.Kind)
		body.Retryable = se.Retryable()
		return http.StatusBadGateway, body
	}

	body.Kind = "internal"
	return http.StatusInternalServerError, body
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, model.ErrorResponse{
		Error: err.Error(),
		Kind:  "bad_request",
	})
}
