package dto

type OrderItemRequest struct {
	ProductID string `json:"productId" binding:"required" example:"0b6f8a8e-3d4c-4a51-9d41-6c0d3c1f4b22"`
	Quantity  int32  `json:"quantity" example:"2"`
}

// CreateOrderRequest: cartId is used when items are empty. Customer fields may be omitted
// by a signed-in user whose token carries them.
type CreateOrderRequest struct {
	CartID        string             `json:"cartId"`
	Items         []OrderItemRequest `json:"items" binding:"omitempty,dive"`
	CustomerName  string             `json:"customerName" example:"Karim Ahmed"`
	CustomerEmail string             `json:"customerEmail" example:"karim@example.com"`
	CustomerPhone string             `json:"customerPhone" example:"01711111111"`
	FullAddress   string             `json:"fullAddress" example:"House 1, Road 2, Dhanmondi, Dhaka"`
	PaymentMethod string             `json:"paymentMethod" binding:"required" example:"CashOnDelivery"`
	PromoCode     string             `json:"promoCode" example:"SAVE10"`
}

type SecureTrackRequest struct {
	OrderID      string `json:"orderId" binding:"required"`
	EmailOrPhone string `json:"emailOrPhone" binding:"required" example:"01711111111"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" example:"Ordered by mistake"`
	// EmailOrPhone proves ownership of a guest order.
	EmailOrPhone string `json:"emailOrPhone"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status" binding:"required" example:"PROCESSING"`
	Comment string `json:"comment"`
}

type UpdatePaymentRequest struct {
	PaymentStatus string `json:"paymentStatus" binding:"required" example:"PAID"`
}

type CourierCreateRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

type CourierBulkRequest struct {
	OrderIDs []string `json:"orderIds" binding:"required,min=1"`
}

type AddCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int32  `json:"quantity" example:"1"`
}

type UpdateCartItemRequest struct {
	Quantity int32 `json:"quantity" example:"2"`
}

type PromotionValidateRequest struct {
	Code  string             `json:"code" binding:"required" example:"SAVE10"`
	Items []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}
