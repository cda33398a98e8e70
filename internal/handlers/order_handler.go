package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/dto"
	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders   service.OrderService
	tracking service.TrackingService
	admin    service.AdminService
	log      *zap.Logger
}

func NewOrderHandler(orders service.OrderService, tracking service.TrackingService, admin service.AdminService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, tracking: tracking, admin: admin, log: log}
}

// Create godoc
// @Summary Оформить заказ
// @Description Creates an order from the caller's cart, or from an explicit item list when X-Guest-Order is true. Prices and stock are re-read on the server.
// @Tags orders
// @Accept json
// @Produce json
// @Param X-Guest-Order header string false "true for a guest item-list order"
// @Param X-Cart-ID header string false "guest cart id"
// @Param order body dto.CreateOrderRequest true "Order"
// @Success 201 {object} dto.Response{data=models.Order}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "out of stock"
// @Failure 422 {object} dto.UnprocessableErrorResponse "invalid promotion"
// @Failure 500 {object} dto.InternalErrorResponse
// @Router /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}

	items, err := toLineInputs(req.Items)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	in := service.CreateOrderInput{
		Customer: service.CustomerInfo{
			Name:        req.CustomerName,
			Email:       req.CustomerEmail,
			Phone:       req.CustomerPhone,
			FullAddress: req.FullAddress,
		},
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		PromoCode:     req.PromoCode,
	}
	if isGuestOrder(c) || len(items) > 0 {
		in.Items = items
	} else if key, ok := cartKey(c, req.CartID); ok {
		in.CartID = key
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.OK(order, "order placed"))
}

// TrackPublic godoc
// @Summary Отслеживание заказа по id
// @Tags orders
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} dto.Response{data=models.Order}
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /orders/track/{orderId} [get]
func (h *OrderHandler) TrackPublic(c *gin.Context) {
	id, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		writeError(c, h.log, service.ErrOrderNotFound)
		return
	}
	order, err := h.tracking.GetByIDPublic(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(order, ""))
}

// TrackSecure godoc
// @Summary Отслеживание заказа с проверкой контакта
// @Description A wrong contact and an unknown order produce the same 404.
// @Tags orders
// @Accept json
// @Produce json
// @Param body body dto.SecureTrackRequest true "Order id and email or phone"
// @Success 200 {object} dto.Response{data=models.Order}
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /orders/track/secure [post]
func (h *OrderHandler) TrackSecure(c *gin.Context) {
	var req dto.SecureTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(req.OrderID))
	if err != nil {
		writeError(c, h.log, service.ErrOrderNotFound)
		return
	}
	order, err := h.tracking.GetByIDSecure(c.Request.Context(), id, req.EmailOrPhone)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(order, ""))
}

// MyOrders godoc
// @Summary Заказы текущего пользователя
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response{data=[]models.Order}
// @Failure 401 {object} dto.UnauthorizedErrorResponse
// @Router /orders/my-orders [get]
func (h *OrderHandler) MyOrders(c *gin.Context) {
	orders, err := h.tracking.ListForUser(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(orders, ""))
}

// Cancel godoc
// @Summary Отмена заказа покупателем
// @Description Owners may cancel before shipment. Guests prove ownership with the order's email or phone.
// @Tags orders
// @Accept json
// @Produce json
// @Param orderId path string true "Order ID"
// @Param body body dto.CancelOrderRequest false "Reason and guest contact"
// @Success 200 {object} dto.Response{data=models.Order}
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "invalid transition"
// @Router /orders/{orderId}/cancel [patch]
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		writeError(c, h.log, service.ErrOrderNotFound)
		return
	}
	var req dto.CancelOrderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, h.log, err)
			return
		}
	}
	order, err := h.orders.CancelOrder(c.Request.Context(), id, service.CancelInput{
		Reason:  req.Reason,
		Contact: req.EmailOrPhone,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(order, "order cancelled"))
}

// UpdateStatus godoc
// @Summary Смена статуса заказа (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "Order ID"
// @Param body body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} dto.Response{data=models.Order}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "invalid transition"
// @Router /orders/admin/{orderId}/status [put]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := parseUUIDParam(c, "orderId")
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	status := models.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	order, err := h.orders.TransitionStatus(c.Request.Context(), id, status, req.Comment)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(order, "status updated"))
}

// UpdatePayment godoc
// @Summary Смена статуса оплаты (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "Order ID"
// @Param body body dto.UpdatePaymentRequest true "Payment status"
// @Success 200 {object} dto.Response{data=models.Order}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /orders/admin/{orderId}/payment [put]
func (h *OrderHandler) UpdatePayment(c *gin.Context) {
	id, err := parseUUIDParam(c, "orderId")
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	var req dto.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	status := models.PaymentStatus(strings.ToUpper(strings.TrimSpace(req.PaymentStatus)))
	order, err := h.orders.UpdatePaymentStatus(c.Request.Context(), id, status)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(order, "payment status updated"))
}

// List godoc
// @Summary Список заказов (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "PENDING, PROCESSING, ..."
// @Param search query string false "id, name, phone, email or tracking code"
// @Param page query int false "page, from 1"
// @Param limit query int false "page size, max 100"
// @Success 200 {object} dto.Response{data=service.OrderPage}
// @Failure 403 {object} dto.ForbiddenErrorResponse
// @Router /orders/admin/list [get]
func (h *OrderHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	res, err := h.admin.ListOrders(c.Request.Context(), service.AdminOrderQuery{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(res, ""))
}

// Overview godoc
// @Summary Сводка по заказам за период (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param period query string false "day, week, month or year" default(week)
// @Success 200 {object} dto.Response{data=service.Overview}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /orders/admin/overview [get]
func (h *OrderHandler) Overview(c *gin.Context) {
	res, err := h.admin.Overview(c.Request.Context(), service.Period(strings.ToLower(c.DefaultQuery("period", "week"))))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(res, ""))
}

func isGuestOrder(c *gin.Context) bool {
	return strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Guest-Order")), "true")
}

func toLineInputs(items []dto.OrderItemRequest) ([]service.LineInput, error) {
	out := make([]service.LineInput, 0, len(items))
	verr := &service.ValidationError{}
	for i, it := range items {
		pid, err := uuid.Parse(strings.TrimSpace(it.ProductID))
		if err != nil {
			verr.Fields = append(verr.Fields, service.FieldViolation{
				Field:   "items[" + strconv.Itoa(i) + "].productId",
				Message: "must be a UUID",
			})
			continue
		}
		out = append(out, service.LineInput{ProductID: pid, Quantity: it.Quantity})
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return out, nil
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, &service.ValidationError{Fields: []service.FieldViolation{{Field: name, Message: "must be a UUID"}}}
	}
	return id, nil
}
