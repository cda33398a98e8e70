package handlers

import (
	"net/http"
	"strings"

	"storefront/internal/dto"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CourierHandler struct {
	fulfillment service.FulfillmentService
	log         *zap.Logger
}

func NewCourierHandler(fulfillment service.FulfillmentService, log *zap.Logger) *CourierHandler {
	return &CourierHandler{fulfillment: fulfillment, log: log}
}

// Create godoc
// @Summary Передать заказ в Steadfast (admin)
// @Description The order must be PROCESSING and not yet dispatched. Status is not changed.
// @Tags courier
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CourierCreateRequest true "Order id"
// @Success 200 {object} dto.Response{data=models.Order}
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "already dispatched"
// @Failure 502 {object} dto.BadGatewayErrorResponse
// @Router /courier/steadfast/create [post]
func (h *CourierHandler) Create(c *gin.Context) {
	var req dto.CourierCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(req.OrderID))
	if err != nil {
		writeError(c, h.log, &service.ValidationError{Fields: []service.FieldViolation{{Field: "orderId", Message: "must be a UUID"}}})
		return
	}
	order, err := h.fulfillment.SendToCourier(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(order, "order sent to courier"))
}

// Bulk godoc
// @Summary Массовая передача заказов в Steadfast (admin)
// @Description Every order is handled independently; failures are listed, already dispatched orders are soft failures.
// @Tags courier
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CourierBulkRequest true "Order ids"
// @Success 200 {object} dto.Response{data=service.BulkDispatchResult}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /courier/steadfast/bulk [post]
func (h *CourierHandler) Bulk(c *gin.Context) {
	var req dto.CourierBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	ids := make([]uuid.UUID, 0, len(req.OrderIDs))
	for _, raw := range req.OrderIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			writeError(c, h.log, &service.ValidationError{Fields: []service.FieldViolation{{Field: "orderIds", Message: "must contain UUIDs only"}}})
			return
		}
		ids = append(ids, id)
	}
	res, err := h.fulfillment.SendBulk(c.Request.Context(), ids)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(res, ""))
}
