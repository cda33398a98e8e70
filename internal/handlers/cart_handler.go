package handlers

import (
	"net/http"
	"strings"

	"storefront/internal/dto"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const headerCartID = "X-Cart-ID"

type CartHandler struct {
	carts service.CartService
	log   *zap.Logger
}

func NewCartHandler(carts service.CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, log: log}
}

// cartKey resolves the cart owner: the signed-in user, otherwise the guest cart id from
// the X-Cart-ID header, the fallback, or the cartId query parameter.
func cartKey(c *gin.Context, fallback string) (string, bool) {
	if uid, ok := service.UserIDFromContext(c.Request.Context()); ok {
		return "user:" + uid.String(), true
	}
	for _, raw := range []string{c.GetHeader(headerCartID), fallback, c.Query("cartId")} {
		if id, err := uuid.Parse(strings.TrimSpace(raw)); err == nil {
			return "guest:" + id.String(), true
		}
	}
	return "", false
}

// Get godoc
// @Summary Корзина
// @Tags cart
// @Produce json
// @Param X-Cart-ID header string false "guest cart id"
// @Success 200 {object} dto.Response{data=service.CartView}
// @Router /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	key, ok := cartKey(c, "")
	if !ok {
		c.JSON(http.StatusOK, dto.OK(emptyCart(), ""))
		return
	}
	view, err := h.carts.Get(c.Request.Context(), key)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(view, ""))
}

// AddItem godoc
// @Summary Добавить товар в корзину
// @Description A guest without X-Cart-ID gets a new cart id in the X-Cart-ID response header.
// @Tags cart
// @Accept json
// @Produce json
// @Param X-Cart-ID header string false "guest cart id"
// @Param body body dto.AddCartItemRequest true "Product and quantity"
// @Success 200 {object} dto.Response{data=service.CartView}
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "out of stock"
// @Router /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	pid, err := uuid.Parse(strings.TrimSpace(req.ProductID))
	if err != nil {
		writeError(c, h.log, &service.ValidationError{Fields: []service.FieldViolation{{Field: "productId", Message: "must be a UUID"}}})
		return
	}

	key, ok := cartKey(c, "")
	if !ok {
		guestID := uuid.NewString()
		key = "guest:" + guestID
		c.Header(headerCartID, guestID)
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	view, err := h.carts.AddItem(c.Request.Context(), key, pid, qty)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(view, "item added"))
}

// UpdateItem godoc
// @Summary Изменить количество
// @Description Quantity below 1 becomes 1; above the stock cap it is clamped.
// @Tags cart
// @Accept json
// @Produce json
// @Param lineId path string true "Cart line id"
// @Param body body dto.UpdateCartItemRequest true "Quantity"
// @Success 200 {object} dto.Response{data=service.CartView}
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /cart/items/{lineId} [patch]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	lineID, err := uuid.Parse(c.Param("lineId"))
	if err != nil {
		writeError(c, h.log, service.ErrCartLineNotFound)
		return
	}
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	key, ok := cartKey(c, "")
	if !ok {
		writeError(c, h.log, service.ErrCartLineNotFound)
		return
	}
	view, err := h.carts.UpdateQuantity(c.Request.Context(), key, lineID, req.Quantity)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(view, "cart updated"))
}

// RemoveItem godoc
// @Summary Удалить строку корзины
// @Tags cart
// @Produce json
// @Param lineId path string true "Cart line id"
// @Success 200 {object} dto.Response{data=service.CartView}
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /cart/items/{lineId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	lineID, err := uuid.Parse(c.Param("lineId"))
	if err != nil {
		writeError(c, h.log, service.ErrCartLineNotFound)
		return
	}
	key, ok := cartKey(c, "")
	if !ok {
		writeError(c, h.log, service.ErrCartLineNotFound)
		return
	}
	view, err := h.carts.RemoveItem(c.Request.Context(), key, lineID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(view, "item removed"))
}

// Clear godoc
// @Summary Очистить корзину
// @Tags cart
// @Produce json
// @Success 200 {object} dto.Response
// @Router /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	if key, ok := cartKey(c, ""); ok {
		if err := h.carts.Clear(c.Request.Context(), key); err != nil {
			writeError(c, h.log, err)
			return
		}
	}
	c.JSON(http.StatusOK, dto.OK(nil, "cart cleared"))
}

func emptyCart() *service.CartView {
	return &service.CartView{
		Lines:  []service.CartLineView{},
		Totals: service.Totals{Subtotal: decimal.Zero, ShippingCost: decimal.Zero, Discount: decimal.Zero, Total: decimal.Zero},
	}
}
