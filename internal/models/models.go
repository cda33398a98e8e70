package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Slug         string           `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Name         string           `gorm:"type:text;not null" json:"name"`
	SKU          string           `gorm:"type:text;not null;default:''" json:"sku"`
	Category     string           `gorm:"type:text;not null;default:'';index" json:"category"`
	Supplier     string           `gorm:"type:text;not null;default:''" json:"supplier"`
	RegularPrice decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"regularPrice"`
	SalePrice    *decimal.Decimal `gorm:"type:numeric(12,2)" json:"salePrice"` // CHECK sale_price < regular_price в миграции
	Images       []string         `gorm:"type:jsonb;serializer:json" json:"images"`
	IsActive     bool             `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updatedAt"`

	Inventory *Inventory `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"inventory,omitempty"`
}

func (Product) TableName() string { return "products" }

// EffectivePrice is the sale price when one is set below the regular price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil && p.SalePrice.LessThan(p.RegularPrice) {
		return *p.SalePrice
	}
	return p.RegularPrice
}

// Stock returns the available quantity, zero when the inventory row was not loaded.
func (p *Product) Stock() int32 {
	if p.Inventory == nil {
		return 0
	}
	return p.Inventory.Available
}

type Inventory struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey" json:"productId"`
	Available int32     `gorm:"not null;default:0" json:"quantity"`

	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Inventory) TableName() string { return "inventories" }

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded,
	}
}

func (s OrderStatus) Valid() bool {
	for _, v := range AllOrderStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "CashOnDelivery"
	PaymentBKash          PaymentMethod = "bKash"
	PaymentNagad          PaymentMethod = "Nagad"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentBKash, PaymentNagad:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

type Order struct {
	ID            uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        *uuid.UUID    `gorm:"type:uuid;index" json:"userId"`
	CustomerName  string        `gorm:"type:text;not null" json:"customerName"`
	CustomerEmail *string       `gorm:"type:text" json:"customerEmail"`
	CustomerPhone string        `gorm:"type:text;not null;index" json:"customerPhone"`
	FullAddress   string        `gorm:"type:text;not null" json:"fullAddress"`
	PaymentMethod PaymentMethod `gorm:"type:text;not null" json:"paymentMethod"`
	PaymentStatus PaymentStatus `gorm:"type:text;not null;default:'UNPAID'" json:"paymentStatus"`

	Subtotal       decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	ShippingCost   decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"shippingCost"`
	DiscountAmount *decimal.Decimal `gorm:"type:numeric(12,2)" json:"discountAmount"`
	TotalAmount    decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"totalAmount"`
	PromotionCode  *string          `gorm:"type:text" json:"promotionCode"`

	Status       OrderStatus `gorm:"type:text;not null;default:'PENDING';index" json:"status"`
	CancelReason *string     `gorm:"type:text" json:"cancelReason,omitempty"`

	TrackingCode  *string    `gorm:"type:text;uniqueIndex" json:"trackingCode"`
	ConsignmentID *string    `gorm:"type:text" json:"consignmentId,omitempty"`
	DispatchedAt  *time.Time `json:"dispatchedAt,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updatedAt"`

	Items   []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT" json:"items"`
	History []OrderHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT" json:"history"`
}

func (Order) TableName() string { return "orders" }

// Discount returns the applied discount or zero.
func (o *Order) Discount() decimal.Decimal {
	if o.DiscountAmount == nil {
		return decimal.Zero
	}
	return *o.DiscountAmount
}

// OrderItem is a frozen copy of the product at order time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:ux_order_items_order_product" json:"orderId"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_order_items_order_product" json:"productId"`
	ProductName string          `gorm:"type:text;not null" json:"productName"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unitPrice"`
	Quantity    int32           `gorm:"type:int;not null" json:"quantity"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"lineTotal"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"createdAt"`
}

func (OrderItem) TableName() string { return "order_items" }

type OrderHistory struct {
	ID      uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID uuid.UUID   `gorm:"type:uuid;not null;index" json:"orderId"`
	Status  OrderStatus `gorm:"type:text;not null" json:"status"`
	Comment string      `gorm:"type:text;not null;default:''" json:"comment"`
	ActorID *uuid.UUID  `gorm:"type:uuid" json:"actorId,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"timestamp"`
}

func (OrderHistory) TableName() string { return "order_history" }

type PromotionType string

const (
	PromotionPercentage  PromotionType = "PERCENTAGE"
	PromotionFixedAmount PromotionType = "FIXED_AMOUNT"
)

type Promotion struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code       string          `gorm:"type:text;not null;uniqueIndex" json:"code"` // всегда в верхнем регистре
	Type       PromotionType   `gorm:"type:text;not null" json:"type"`
	Value      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"value"`
	ProductID  *uuid.UUID      `gorm:"type:uuid;index" json:"productId"`
	StartDate  *time.Time      `json:"startDate"`
	EndDate    *time.Time      `json:"endDate"`
	UsageLimit *int32          `json:"usageLimit"`
	UsedCount  int32           `gorm:"not null;default:0" json:"usedCount"`
	IsActive   bool            `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Promotion) TableName() string { return "promotions" }

// Setting is one entry of the site-wide key/value configuration.
type Setting struct {
	Key       string    `gorm:"type:text;primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Setting) TableName() string { return "site_settings" }
