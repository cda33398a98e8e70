package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDispatched    = "order.dispatched"
)

type OrderItemEvent struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type OrderPlacedEvent struct {
	OrderID       uuid.UUID        `json:"order_id"`
	UserID        *uuid.UUID       `json:"user_id,omitempty"`
	CustomerName  string           `json:"customer_name"`
	CustomerEmail string           `json:"customer_email,omitempty"`
	CustomerPhone string           `json:"customer_phone"`
	PaymentMethod string           `json:"payment_method"`
	Items         []OrderItemEvent `json:"items"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	Shipping      decimal.Decimal  `json:"shipping"`
	Discount      decimal.Decimal  `json:"discount"`
	Total         decimal.Decimal  `json:"total"`
	CreatedAt     time.Time        `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Comment       string    `json:"comment,omitempty"`
	Restocked     bool      `json:"restocked"`
	ChangedAt     time.Time `json:"changed_at"`
}

type OrderDispatchedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	TrackingCode  string    `json:"tracking_code"`
	ConsignmentID string    `json:"consignment_id"`
	DispatchedAt  time.Time `json:"dispatched_at"`
}

type EventBus interface {
	PublishOrderPlaced(ctx context.Context, e OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, e OrderStatusChangedEvent) error
	PublishOrderDispatched(ctx context.Context, e OrderDispatchedEvent) error
}
