package service

import (
	"context"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AppliedPromotion struct {
	PromotionID uuid.UUID
	Code        string
	Type        models.PromotionType
	Discount    decimal.Decimal
}

type PromotionPreview struct {
	Code     string          `json:"code"`
	Type     string          `json:"type"`
	Discount decimal.Decimal `json:"discount"`
	Totals   Totals          `json:"totals"`
}

type PromotionService interface {
	// Resolve looks the code up through promos so the order engine can pass its transaction.
	Resolve(ctx context.Context, promos repository.PromotionRepo, code string, lines []PricedLine) (*AppliedPromotion, error)
	Preview(ctx context.Context, code string, items []LineInput) (*PromotionPreview, error)
}

type promotionService struct {
	repo     *repository.Repository
	settings SettingsProvider
	now      func() time.Time
}

func NewPromotionService(repo *repository.Repository, settings SettingsProvider) PromotionService {
	return &promotionService{repo: repo, settings: settings, now: time.Now}
}

func (s *promotionService) Resolve(ctx context.Context, promos repository.PromotionRepo, code string, lines []PricedLine) (*AppliedPromotion, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalidPromotion("empty code")
	}
	p, err := promos.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, invalidPromotion("unknown code")
	}
	discount, err := EvaluatePromotion(p, lines, s.now())
	if err != nil {
		return nil, err
	}
	return &AppliedPromotion{PromotionID: p.ID, Code: p.Code, Type: p.Type, Discount: discount}, nil
}

func (s *promotionService) Preview(ctx context.Context, code string, items []LineInput) (*PromotionPreview, error) {
	items, err := normalizeLines(items, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.repo.Products.BatchGetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]PricedLine, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok || !p.IsActive {
			return nil, ErrProductNotFound
		}
		lines = append(lines, priceLine(&p, it.Quantity))
	}

	applied, err := s.Resolve(ctx, s.repo.Promotions, code, lines)
	if err != nil {
		return nil, err
	}
	policy, err := loadShippingPolicy(ctx, s.settings)
	if err != nil {
		return nil, err
	}
	return &PromotionPreview{
		Code:     applied.Code,
		Type:     string(applied.Type),
		Discount: applied.Discount,
		Totals:   ComputeTotals(subtotalOf(lines), applied.Discount, policy),
	}, nil
}

// EvaluatePromotion validates p against the priced lines at the given moment and returns
// the discount, never more than the amount it applies to.
func EvaluatePromotion(p *models.Promotion, lines []PricedLine, now time.Time) (decimal.Decimal, error) {
	switch {
	case !p.IsActive:
		return decimal.Zero, invalidPromotion("inactive")
	case p.StartDate != nil && now.Before(*p.StartDate):
		return decimal.Zero, invalidPromotion("not started yet")
	case p.EndDate != nil && now.After(*p.EndDate):
		return decimal.Zero, invalidPromotion("expired")
	case p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit:
		return decimal.Zero, invalidPromotion("usage limit reached")
	}

	base := subtotalOf(lines)
	if p.ProductID != nil {
		base = decimal.Zero
		matched := false
		for _, l := range lines {
			if l.ProductID == *p.ProductID {
				base = base.Add(l.LineTotal)
				matched = true
			}
		}
		if !matched {
			return decimal.Zero, invalidPromotion("not applicable to the items in this order")
		}
	}

	var discount decimal.Decimal
	switch p.Type {
	case models.PromotionPercentage:
		discount = base.Mul(p.Value).Div(decimal.NewFromInt(100)).Round(2)
	case models.PromotionFixedAmount:
		discount = p.Value
	default:
		return decimal.Zero, invalidPromotion("unsupported type")
	}
	if discount.GreaterThan(base) {
		discount = base
	}
	return discount, nil
}

func priceLine(p *models.Product, qty int32) PricedLine {
	unit := p.EffectivePrice()
	return PricedLine{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   unit,
		Quantity:    qty,
		LineTotal:   unit.Mul(decimal.NewFromInt32(qty)),
	}
}
