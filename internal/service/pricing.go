package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SettingFreeShippingThreshold = "shippingFreeThreshold"
	SettingFlatShippingFee       = "shippingFlatFee"
	SettingMaxLineQuantity       = "cartMaxLineQuantity"
	SettingSteadfastBaseURL      = "steadfastBaseUrl"
	SettingSteadfastAPIKey       = "steadfastApiKey"
	SettingSteadfastSecretKey    = "steadfastSecretKey"
)

var (
	DefaultFreeShippingThreshold = decimal.NewFromInt(500)
	DefaultFlatShippingFee       = decimal.NewFromInt(60)
)

const DefaultMaxLineQuantity int32 = 10

// ShippingPolicy: shipping is free strictly above the threshold, flat fee otherwise.
type ShippingPolicy struct {
	FreeThreshold decimal.Decimal
	FlatFee       decimal.Decimal
}

func (p ShippingPolicy) Cost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.FlatFee
}

type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
}

// ComputeTotals clamps the discount to the subtotal. Shipping is evaluated on the
// pre-discount subtotal.
func ComputeTotals(subtotal, discount decimal.Decimal, policy ShippingPolicy) Totals {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	shipping := policy.Cost(subtotal)
	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Discount:     discount,
		Total:        subtotal.Sub(discount).Add(shipping),
	}
}

// PricedLine is one line after the catalog re-read.
type PricedLine struct {
	ProductID   uuid.UUID
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int32
	LineTotal   decimal.Decimal
}

func subtotalOf(lines []PricedLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal)
	}
	return sum
}

func loadShippingPolicy(ctx context.Context, settings SettingsProvider) (ShippingPolicy, error) {
	threshold, err := settingDecimal(ctx, settings, SettingFreeShippingThreshold, DefaultFreeShippingThreshold)
	if err != nil {
		return ShippingPolicy{}, err
	}
	fee, err := settingDecimal(ctx, settings, SettingFlatShippingFee, DefaultFlatShippingFee)
	if err != nil {
		return ShippingPolicy{}, err
	}
	return ShippingPolicy{FreeThreshold: threshold, FlatFee: fee}, nil
}

func loadMaxLineQuantity(ctx context.Context, settings SettingsProvider) (int32, error) {
	v, err := settingDecimal(ctx, settings, SettingMaxLineQuantity, decimal.NewFromInt32(DefaultMaxLineQuantity))
	if err != nil {
		return 0, err
	}
	n := v.IntPart()
	if n <= 0 || n > math.MaxInt32 {
		return DefaultMaxLineQuantity, nil
	}
	return int32(n), nil
}

func settingDecimal(ctx context.Context, settings SettingsProvider, key string, def decimal.Decimal) (decimal.Decimal, error) {
	if settings == nil {
		return def, nil
	}
	raw, err := settings.Get(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		return def, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("setting %s: invalid decimal %q: %w", key, raw, err)
	}
	return d, nil
}
