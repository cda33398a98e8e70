package service

import (
	"context"
	"math"
	"sort"
	"strconv"

	"storefront/internal/models"

	"github.com/google/uuid"
)

type LineInput struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int32     `json:"quantity"`
}

type CustomerInfo struct {
	Name        string
	Email       string
	Phone       string
	FullAddress string
}

// CreateOrderInput: either CartID or Items is the source of the lines.
type CreateOrderInput struct {
	CartID        string
	Items         []LineInput
	Customer      CustomerInfo
	PaymentMethod models.PaymentMethod
	PromoCode     string
}

type CancelInput struct {
	Reason string
	// Contact is the phone or email a guest proves ownership with.
	Contact string
}

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus, comment string) (*models.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID, in CancelInput) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) (*models.Order, error)
}

// normalizeLines merges duplicate products and orders lines by product id.
// maxQty <= 0 disables the per-line cap.
func normalizeLines(items []LineInput, maxQty int32) ([]LineInput, error) {
	verr := &ValidationError{}
	limit := int64(math.MaxInt32)
	if maxQty > 0 {
		limit = int64(maxQty)
	}
	merged := make(map[uuid.UUID]int64, len(items))
	for i, it := range items {
		switch {
		case it.ProductID == uuid.Nil:
			verr.add(lineField(i, "productId"), "is required")
			continue
		case it.Quantity <= 0:
			verr.add(lineField(i, "quantity"), "must be at least 1")
			continue
		case int64(it.Quantity) > limit:
			verr.add(lineField(i, "quantity"), "quantity exceeds the per-line maximum")
			continue
		}
		merged[it.ProductID] += int64(it.Quantity)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	out := make([]LineInput, 0, len(merged))
	for pid, qty := range merged {
		if qty > limit {
			verr.add("items."+pid.String(), "quantity exceeds the per-line maximum")
			continue
		}
		out = append(out, LineInput{ProductID: pid, Quantity: int32(qty)})
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out, nil
}

func lineField(i int, name string) string {
	return "items[" + strconv.Itoa(i) + "]." + name
}
