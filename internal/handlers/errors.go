package handlers

import (
	"errors"
	"net/http"

	"storefront/internal/dto"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// writeError maps service errors onto the HTTP envelope.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make([]dto.FieldError, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, dto.FieldError{Field: f.Field, Message: f.Message})
		}
		log.Warn("validation failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("validation failed", fields))
	case errors.Is(err, service.ErrEmptyOrder):
		c.JSON(http.StatusBadRequest, dto.NewEmptyOrderError("order has no items"))
	case errors.Is(err, service.ErrOutOfStock):
		log.Warn("out of stock", zap.Error(err))
		c.JSON(http.StatusConflict, dto.NewOutOfStockError("not enough stock", err.Error()))
	case errors.Is(err, service.ErrInvalidPromotion):
		c.JSON(http.StatusUnprocessableEntity, dto.NewInvalidPromotionError("promotion could not be applied", err.Error()))
	case errors.Is(err, service.ErrInvalidTransition):
		log.Warn("invalid status transition", zap.Error(err))
		c.JSON(http.StatusConflict, dto.NewInvalidTransitionError("invalid status transition", err.Error()))
	case errors.Is(err, service.ErrAlreadyDispatched):
		c.JSON(http.StatusConflict, dto.NewAlreadyDispatchedError("order already dispatched to courier"))
	case errors.Is(err, service.ErrNotDispatchable), errors.Is(err, service.ErrDispatchInProgress):
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(err.Error()))
	case errors.Is(err, service.ErrUpstream):
		log.Error("upstream failure", zap.Error(err))
		c.JSON(http.StatusBadGateway, dto.NewUpstreamError("courier service unavailable"))
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("authentication required"))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("access denied"))
	default:
		log.Error("internal error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

// bindError converts a gin binding failure into the validation envelope.
func bindError(c *gin.Context, log *zap.Logger, err error) {
	log.Warn("invalid request body", zap.Error(err))
	var ve validator.ValidationErrors
	fields := []dto.FieldError{}
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields = append(fields, dto.FieldError{Field: fe.Field(), Message: "failed on " + fe.Tag(), Tag: fe.Tag()})
		}
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", fields))
}
