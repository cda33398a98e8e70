package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func pricedLine(id uuid.UUID, unit string, qty int32) service.PricedLine {
	u := dec(unit)
	return service.PricedLine{ProductID: id, ProductName: "item", UnitPrice: u, Quantity: qty, LineTotal: u.Mul(decimal.NewFromInt32(qty))}
}

func TestEvaluatePromotion(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()
	lines := []service.PricedLine{pricedLine(a, "333.33", 1), pricedLine(b, "100", 2)}

	tests := []struct {
		name    string
		promo   models.Promotion
		want    string
		wantErr bool
	}{
		{name: "percentage of subtotal", promo: models.Promotion{Type: models.PromotionPercentage, Value: dec("15"), IsActive: true}, want: "80"},
		{name: "percentage rounds to cents", promo: models.Promotion{Type: models.PromotionPercentage, Value: dec("10"), IsActive: true, ProductID: &a}, want: "33.33"},
		{name: "fixed amount", promo: models.Promotion{Type: models.PromotionFixedAmount, Value: dec("50"), IsActive: true}, want: "50"},
		{name: "fixed clamped to scoped line", promo: models.Promotion{Type: models.PromotionFixedAmount, Value: dec("500"), IsActive: true, ProductID: &b}, want: "200"},
		{name: "scoped product missing", promo: models.Promotion{Type: models.PromotionFixedAmount, Value: dec("5"), IsActive: true, ProductID: ptr(uuid.New())}, wantErr: true},
		{name: "inactive", promo: models.Promotion{Type: models.PromotionFixedAmount, Value: dec("5")}, wantErr: true},
		{name: "not started", promo: models.Promotion{Type: models.PromotionFixedAmount, Value: dec("5"), IsActive: true, StartDate: ptr(now.Add(time.Hour))}, wantErr: true},
		{name: "expired", promo: models.Promotion{Type: models.PromotionFixedAmount, Value: dec("5"), IsActive: true, EndDate: ptr(now.Add(-time.Hour))}, wantErr: true},
		{name: "inside window", promo: models.Promotion{Type: models.PromotionFixedAmount, Value: dec("5"), IsActive: true, StartDate: ptr(now.Add(-time.Hour)), EndDate: ptr(now.Add(time.Hour))}, want: "5"},
		{name: "usage exhausted", promo: models.Promotion{Type: models.PromotionFixedAmount, Value: dec("5"), IsActive: true, UsageLimit: ptr(int32(3)), UsedCount: 3}, wantErr: true},
		{name: "unknown type", promo: models.Promotion{Type: "BOGO", Value: dec("5"), IsActive: true}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.EvaluatePromotion(&tt.promo, lines, now)
			if tt.wantErr {
				if !errors.Is(err, service.ErrInvalidPromotion) {
					t.Fatalf("expected ErrInvalidPromotion, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(dec(tt.want)) {
				t.Fatalf("discount = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPromotionPreview(t *testing.T) {
	store := newMemStore()
	repo := store.Repo()
	ctx := context.Background()
	p := store.addProduct("Blender", 400, nil, 5)
	_ = repo.Promotions.Create(ctx, &models.Promotion{Code: "FLAT100", Type: models.PromotionFixedAmount, Value: dec("100"), IsActive: true})

	svc := service.NewPromotionService(repo, staticSettings{})
	got, err := svc.Preview(ctx, "flat100", []service.LineInput{line(p.ID, 1)})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if got.Code != "FLAT100" || !got.Discount.Equal(dec("100")) {
		t.Fatalf("preview = %+v", got)
	}
	// доставка считается от суммы до скидки
	if !got.Totals.ShippingCost.Equal(dec("60")) || !got.Totals.Total.Equal(dec("360")) {
		t.Fatalf("totals = %+v", got.Totals)
	}
	if store.promo("FLAT100").UsedCount != 0 {
		t.Fatalf("preview must not consume usage")
	}

	if _, err := svc.Preview(ctx, "flat100", nil); !errors.Is(err, service.ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
	if _, err := svc.Preview(ctx, "flat100", []service.LineInput{line(uuid.New(), 1)}); !errors.Is(err, service.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := svc.Preview(ctx, "", []service.LineInput{line(p.ID, 1)}); !errors.Is(err, service.ErrInvalidPromotion) {
		t.Fatalf("expected ErrInvalidPromotion, got %v", err)
	}
}
