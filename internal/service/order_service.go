package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxReasonLen = 500

type OrderDeps struct {
	Repo       *repository.Repository
	Tx         Transactor
	Carts      CartStore
	Settings   SettingsProvider
	Promotions PromotionService
	Events     EventBus
	Log        *zap.Logger
	Now        func() time.Time
}

type orderService struct {
	repo       *repository.Repository
	tx         Transactor
	carts      CartStore
	settings   SettingsProvider
	promotions PromotionService
	events     EventBus
	log        *zap.Logger
	now        func() time.Time
}

func NewOrderService(d OrderDeps) OrderService {
	s := &orderService{
		repo:       d.Repo,
		tx:         d.Tx,
		carts:      d.Carts,
		settings:   d.Settings,
		promotions: d.Promotions,
		events:     d.Events,
		log:        d.Log,
		now:        d.Now,
	}
	if s.tx == nil {
		s.tx = d.Repo
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	var userID *uuid.UUID
	if uid, ok := UserIDFromContext(ctx); ok {
		userID = &uid
		if p, ok := ProfileFromContext(ctx); ok {
			in.Customer = fillFromProfile(in.Customer, p)
		}
	}
	if err := validateCustomer(in.Customer, in.PaymentMethod); err != nil {
		return nil, err
	}

	maxLine, err := loadMaxLineQuantity(ctx, s.settings)
	if err != nil {
		return nil, err
	}

	raw := in.Items
	fromCart := len(raw) == 0 && in.CartID != ""
	if fromCart {
		cart, err := s.carts.Get(ctx, in.CartID)
		if err != nil {
			return nil, err
		}
		for _, l := range cart.Lines {
			raw = append(raw, LineInput{ProductID: l.ProductID, Quantity: l.Quantity})
		}
	}
	if len(raw) == 0 {
		return nil, ErrEmptyOrder
	}
	lines, err := normalizeLines(raw, maxLine)
	if err != nil {
		return nil, err
	}

	policy, err := loadShippingPolicy(ctx, s.settings)
	if err != nil {
		return nil, err
	}

	var (
		order *models.Order
		now   = s.now()
	)
	err = s.tx.WithTx(ctx, func(tx *repository.Repository) error {
		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ProductID)
		}
		products, err := tx.Products.BatchGetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		// цены и остатки только из базы, клиенту не доверяем
		verr := &ValidationError{}
		priced := make([]PricedLine, 0, len(lines))
		for i, l := range lines {
			p, ok := byID[l.ProductID]
			if !ok || !p.IsActive {
				verr.add(lineField(i, "productId"), ErrProductNotFound.Error())
				continue
			}
			if l.Quantity > p.Stock() {
				return outOfStock(p.Name, l.Quantity, p.Stock())
			}
			priced = append(priced, priceLine(&p, l.Quantity))
		}
		if err := verr.orNil(); err != nil {
			return err
		}

		subtotal := subtotalOf(priced)
		discount := decimal.Zero
		var applied *AppliedPromotion
		if code := strings.TrimSpace(in.PromoCode); code != "" {
			applied, err = s.promotions.Resolve(ctx, tx.Promotions, code, priced)
			if err != nil {
				return err
			}
			ok, err := tx.Promotions.ConsumeUsage(ctx, applied.PromotionID)
			if err != nil {
				return err
			}
			if !ok {
				return invalidPromotion("usage limit reached")
			}
			discount = applied.Discount
		}
		totals := ComputeTotals(subtotal, discount, policy)

		order = &models.Order{
			ID:            uuid.New(),
			UserID:        userID,
			CustomerName:  strings.TrimSpace(in.Customer.Name),
			CustomerEmail: optionalString(in.Customer.Email),
			CustomerPhone: strings.TrimSpace(in.Customer.Phone),
			FullAddress:   strings.TrimSpace(in.Customer.FullAddress),
			PaymentMethod: in.PaymentMethod,
			PaymentStatus: models.PaymentStatusUnpaid,
			Subtotal:      totals.Subtotal,
			ShippingCost:  totals.ShippingCost,
			TotalAmount:   totals.Total,
			Status:        models.OrderStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if applied != nil {
			d := totals.Discount
			order.DiscountAmount = &d
			order.PromotionCode = &applied.Code
		}
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(priced))
		for _, pl := range priced {
			items = append(items, models.OrderItem{
				ID:          uuid.New(),
				OrderID:     order.ID,
				ProductID:   pl.ProductID,
				ProductName: pl.ProductName,
				UnitPrice:   pl.UnitPrice,
				Quantity:    pl.Quantity,
				LineTotal:   pl.LineTotal,
				CreatedAt:   now,
			})
		}
		if err := tx.OrderItems.BulkCreate(ctx, items); err != nil {
			return err
		}
		if err := tx.History.Append(ctx, &models.OrderHistory{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Status:    models.OrderStatusPending,
			Comment:   "Order placed",
			ActorID:   userID,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		// списание в порядке product id, чтобы параллельные заказы брали блокировки одинаково
		for _, pl := range priced {
			ok, err := tx.Inventories.TryDecrement(ctx, pl.ProductID, pl.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				p := byID[pl.ProductID]
				return outOfStock(p.Name, pl.Quantity, p.Stock())
			}
		}

		fresh, err := tx.Orders.GetByID(ctx, order.ID)
		if err != nil {
			return err
		}
		if fresh != nil {
			order = fresh
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(lines)),
	)

	if fromCart {
		if err := s.carts.Clear(ctx, in.CartID); err != nil {
			s.log.Warn("failed to clear cart after order", zap.String("cart_id", in.CartID), zap.Error(err))
		}
	}
	s.publishPlaced(ctx, order)
	return order, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus, comment string) (*models.Order, error) {
	adminID, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, invalidField("status", "unknown status")
	}
	return s.transition(ctx, id, to, comment, &adminID, nil)
}

func (s *orderService) CancelOrder(ctx context.Context, id uuid.UUID, in CancelInput) (*models.Order, error) {
	var actor *uuid.UUID
	uid, authed := UserIDFromContext(ctx)
	if authed {
		actor = &uid
	}
	admin := isAdmin(ctx)

	guard := func(o *models.Order) error {
		if admin {
			return nil
		}
		owned := authed && o.UserID != nil && *o.UserID == uid
		guestProof := o.UserID == nil && contactMatches(o, in.Contact)
		if !owned && !guestProof {
			return ErrOrderNotFound
		}
		if !customerMayCancel(o.Status) {
			return fmt.Errorf("%w: %s orders can no longer be cancelled", ErrInvalidTransition, o.Status)
		}
		return nil
	}
	return s.transition(ctx, id, models.OrderStatusCancelled, in.Reason, actor, guard)
}

func (s *orderService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) (*models.Order, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, invalidField("paymentStatus", "unknown payment status")
	}
	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	if ord.PaymentStatus == status {
		return ord, nil
	}
	if err := s.repo.Orders.UpdatePaymentStatus(ctx, id, status); err != nil {
		return nil, err
	}
	ord.PaymentStatus = status
	return ord, nil
}

// transition moves the order along one edge of the state machine. guard may reject
// the order before anything is written.
func (s *orderService) transition(ctx context.Context, id uuid.UUID, to models.OrderStatus, comment string, actor *uuid.UUID, guard func(*models.Order) error) (*models.Order, error) {
	comment = sanitizeReason(comment)

	var (
		order     *models.Order
		from      models.OrderStatus
		restocked bool
		now       = s.now()
	)
	err := s.tx.WithTx(ctx, func(tx *repository.Repository) error {
		o, err := tx.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o == nil {
			return ErrOrderNotFound
		}
		if guard != nil {
			if err := guard(o); err != nil {
				return err
			}
		}
		from = o.Status
		if !CanTransition(from, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}

		extra := map[string]any{"updated_at": now}
		switch to {
		case models.OrderStatusCancelled:
			if comment != "" {
				extra["cancel_reason"] = comment
			}
		case models.OrderStatusDelivered:
			if o.PaymentMethod == models.PaymentCashOnDelivery {
				extra["payment_status"] = models.PaymentStatusPaid
			}
		case models.OrderStatusRefunded:
			extra["payment_status"] = models.PaymentStatusRefunded
		}

		ok, err := tx.Orders.UpdateStatus(ctx, id, from, to, extra)
		if err != nil {
			return err
		}
		if !ok {
			// статус успели поменять параллельно
			return fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
		}

		if to == models.OrderStatusCancelled && restocksOnCancel(from) {
			items := append([]models.OrderItem(nil), o.Items...)
			sort.Slice(items, func(i, j int) bool {
				return items[i].ProductID.String() < items[j].ProductID.String()
			})
			for _, it := range items {
				if _, err := tx.Inventories.AdjustAvailable(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
			restocked = true
		}

		if comment == "" {
			comment = "Status changed to " + string(to)
		}
		if err := tx.History.Append(ctx, &models.OrderHistory{
			ID:        uuid.New(),
			OrderID:   id,
			Status:    to,
			Comment:   comment,
			ActorID:   actor,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		fresh, err := tx.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		order = fresh
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			s.log.Warn("status transition rejected", zap.String("order_id", id.String()), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("order status changed",
		zap.String("order_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Bool("restocked", restocked),
	)
	if s.events != nil && order != nil {
		if err := s.events.PublishOrderStatusChanged(ctx, OrderStatusChangedEvent{
			OrderID:       order.ID,
			CustomerName:  order.CustomerName,
			CustomerEmail: derefString(order.CustomerEmail),
			From:          string(from),
			To:            string(to),
			Comment:       comment,
			Restocked:     restocked,
			ChangedAt:     now,
		}); err != nil {
			s.log.Warn("publish order.status_changed failed", zap.Error(err))
		}
	}
	return order, nil
}

func (s *orderService) publishPlaced(ctx context.Context, o *models.Order) {
	if s.events == nil {
		return
	}
	items := make([]OrderItemEvent, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemEvent{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	err := s.events.PublishOrderPlaced(ctx, OrderPlacedEvent{
		OrderID:       o.ID,
		UserID:        o.UserID,
		CustomerName:  o.CustomerName,
		CustomerEmail: derefString(o.CustomerEmail),
		CustomerPhone: o.CustomerPhone,
		PaymentMethod: string(o.PaymentMethod),
		Items:         items,
		Subtotal:      o.Subtotal,
		Shipping:      o.ShippingCost,
		Discount:      o.Discount(),
		Total:         o.TotalAmount,
		CreatedAt:     o.CreatedAt,
	})
	if err != nil {
		s.log.Warn("publish order.placed failed", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}

func validateCustomer(c CustomerInfo, pm models.PaymentMethod) error {
	verr := &ValidationError{}
	if strings.TrimSpace(c.Name) == "" {
		verr.add("customerName", "is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		verr.add("customerPhone", "is required")
	} else if n := len(normalizePhone(c.Phone)); n < 10 || n > 15 {
		verr.add("customerPhone", "must contain 10 to 15 digits")
	}
	if strings.TrimSpace(c.FullAddress) == "" {
		verr.add("fullAddress", "is required")
	}
	if email := strings.TrimSpace(c.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			verr.add("customerEmail", "is not a valid email address")
		}
	}
	if !pm.Valid() {
		verr.add("paymentMethod", "must be one of CashOnDelivery, bKash, Nagad")
	}
	return verr.orNil()
}

func fillFromProfile(c CustomerInfo, p Profile) CustomerInfo {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = p.Name
	}
	if strings.TrimSpace(c.Email) == "" {
		c.Email = p.Email
	}
	if strings.TrimSpace(c.Phone) == "" {
		c.Phone = p.Phone
	}
	return c
}

// contactMatches compares an email case-insensitively or a phone by its digits.
func contactMatches(o *models.Order, contact string) bool {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return false
	}
	if strings.Contains(contact, "@") {
		return o.CustomerEmail != nil && strings.EqualFold(strings.TrimSpace(*o.CustomerEmail), contact)
	}
	want := normalizePhone(contact)
	return want != "" && want == normalizePhone(o.CustomerPhone)
}

// normalizePhone keeps digits only; +8801XXXXXXXXX and 01XXXXXXXXX compare equal.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if len(d) == 13 && strings.HasPrefix(d, "880") {
		d = d[2:]
	}
	return d
}

func sanitizeReason(reason string) string {
	r := strings.ToValidUTF8(strings.TrimSpace(reason), "")
	if len(r) > maxReasonLen {
		cut := maxReasonLen
		for cut > 0 && !utf8.RuneStart(r[cut]) {
			cut--
		}
		r = strings.TrimSpace(r[:cut])
	}
	return r
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
