package service

import (
	"context"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartLineView struct {
	LineID       uuid.UUID        `json:"lineId"`
	ProductID    uuid.UUID        `json:"productId"`
	Slug         string           `json:"slug"`
	Name         string           `json:"name"`
	RegularPrice decimal.Decimal  `json:"regularPrice"`
	SalePrice    *decimal.Decimal `json:"salePrice"`
	UnitPrice    decimal.Decimal  `json:"unitPrice"`
	Quantity     int32            `json:"quantity"`
	LineTotal    decimal.Decimal  `json:"lineTotal"`
	Stock        int32            `json:"stock"`
	MaxQuantity  int32            `json:"maxQuantity"`
}

type CartView struct {
	ID        string         `json:"id"`
	Lines     []CartLineView `json:"lines"`
	ItemCount int32          `json:"itemCount"`
	Totals    Totals         `json:"totals"`
}

type CartService interface {
	Get(ctx context.Context, cartID string) (*CartView, error)
	AddItem(ctx context.Context, cartID string, productID uuid.UUID, qty int32) (*CartView, error)
	UpdateQuantity(ctx context.Context, cartID string, lineID uuid.UUID, qty int32) (*CartView, error)
	RemoveItem(ctx context.Context, cartID string, lineID uuid.UUID) (*CartView, error)
	Clear(ctx context.Context, cartID string) error
	ComputeTotals(ctx context.Context, cartID string) (Totals, error)
}

type cartService struct {
	store    CartStore
	catalog  CatalogService
	settings SettingsProvider
	now      func() time.Time
}

func NewCartService(store CartStore, catalog CatalogService, settings SettingsProvider) CartService {
	return &cartService{store: store, catalog: catalog, settings: settings, now: time.Now}
}

// lineCap is the most a single line may hold right now: min(stock, max per line).
func lineCap(p *models.Product, maxLine int32) int32 {
	if s := p.Stock(); s < maxLine {
		return s
	}
	return maxLine
}

func (s *cartService) Get(ctx context.Context, cartID string) (*CartView, error) {
	cart, err := s.store.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *cartService) AddItem(ctx context.Context, cartID string, productID uuid.UUID, qty int32) (*CartView, error) {
	if qty < 1 {
		qty = 1
	}
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrProductNotFound
	}
	maxLine, err := loadMaxLineQuantity(ctx, s.settings)
	if err != nil {
		return nil, err
	}
	limit := lineCap(p, maxLine)
	if limit < 1 {
		return nil, outOfStock(p.Name, qty, p.Stock())
	}
	qty = clampQty(qty, limit)

	cart, err := s.store.Update(ctx, cartID, func(c *models.Cart) error {
		if i := c.LineForProduct(productID); i >= 0 {
			c.Lines[i].Quantity = clampQty(c.Lines[i].Quantity+qty, limit)
			return nil
		}
		c.Lines = append(c.Lines, models.CartLine{
			ID:        uuid.New(),
			ProductID: productID,
			Quantity:  clampQty(qty, limit),
			AddedAt:   s.now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *cartService) UpdateQuantity(ctx context.Context, cartID string, lineID uuid.UUID, qty int32) (*CartView, error) {
	current, err := s.store.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	i := current.Line(lineID)
	if i < 0 {
		return nil, ErrCartLineNotFound
	}
	p, err := s.catalog.GetProduct(ctx, current.Lines[i].ProductID)
	if err != nil {
		return nil, err
	}
	maxLine, err := loadMaxLineQuantity(ctx, s.settings)
	if err != nil {
		return nil, err
	}
	limit := lineCap(p, maxLine)
	if limit < 1 {
		return nil, outOfStock(p.Name, qty, p.Stock())
	}
	qty = clampQty(qty, limit)

	cart, err := s.store.Update(ctx, cartID, func(c *models.Cart) error {
		j := c.Line(lineID)
		if j < 0 {
			return ErrCartLineNotFound
		}
		c.Lines[j].Quantity = clampQty(qty, limit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *cartService) RemoveItem(ctx context.Context, cartID string, lineID uuid.UUID) (*CartView, error) {
	cart, err := s.store.Update(ctx, cartID, func(c *models.Cart) error {
		i := c.Line(lineID)
		if i < 0 {
			return ErrCartLineNotFound
		}
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *cartService) Clear(ctx context.Context, cartID string) error {
	return s.store.Clear(ctx, cartID)
}

func (s *cartService) ComputeTotals(ctx context.Context, cartID string) (Totals, error) {
	v, err := s.Get(ctx, cartID)
	if err != nil {
		return Totals{}, err
	}
	return v.Totals, nil
}

func (s *cartService) view(ctx context.Context, cart *models.Cart) (*CartView, error) {
	out := &CartView{ID: cart.ID, Lines: make([]CartLineView, 0, len(cart.Lines))}
	if len(cart.Lines) == 0 {
		out.Totals = Totals{Subtotal: decimal.Zero, ShippingCost: decimal.Zero, Discount: decimal.Zero, Total: decimal.Zero}
		return out, nil
	}

	ids := make([]uuid.UUID, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	maxLine, err := loadMaxLineQuantity(ctx, s.settings)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, l := range cart.Lines {
		p, ok := products[l.ProductID]
		if !ok {
			continue // товар удалён из каталога
		}
		priced := priceLine(&p, l.Quantity)
		out.Lines = append(out.Lines, CartLineView{
			LineID:       l.ID,
			ProductID:    p.ID,
			Slug:         p.Slug,
			Name:         p.Name,
			RegularPrice: p.RegularPrice,
			SalePrice:    p.SalePrice,
			UnitPrice:    priced.UnitPrice,
			Quantity:     l.Quantity,
			LineTotal:    priced.LineTotal,
			Stock:        p.Stock(),
			MaxQuantity:  lineCap(&p, maxLine),
		})
		out.ItemCount += l.Quantity
		subtotal = subtotal.Add(priced.LineTotal)
	}

	policy, err := loadShippingPolicy(ctx, s.settings)
	if err != nil {
		return nil, err
	}
	out.Totals = ComputeTotals(subtotal, decimal.Zero, policy)
	return out, nil
}

func clampQty(qty, limit int32) int32 {
	if qty < 1 {
		qty = 1
	}
	if qty > limit {
		qty = limit
	}
	return qty
}
