package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors to HTTP statuses. Anything unrecognised is
// logged and reported as a generic 500.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		status, msg = http.StatusBadRequest, verr.Msg
	case errors.Is(err, domain.ErrInvalidSignature):
		status, msg = http.StatusBadRequest, "invalid signature"
	case errors.Is(err, domain.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrInsufficientStock):
		status, msg = http.StatusConflict, "insufficient stock"
	case errors.Is(err, domain.ErrAlreadyExists):
		status, msg = http.StatusConflict, "already exists"
	case errors.Is(err, domain.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrExternalService):
		status, msg = http.StatusBadGateway, "upstream service unavailable"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.String(requestIDKey, c.GetString(requestIDKey)),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}
