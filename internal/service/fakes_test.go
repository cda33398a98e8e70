package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for postgres. Every single statement is atomic and
// conditional updates behave like their SQL counterparts; a failed WithTx replays the
// undo journal.
type memStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]models.Product
	stock    map[uuid.UUID]int32
	orders   map[uuid.UUID]*models.Order
	items    map[uuid.UUID][]models.OrderItem
	history  map[uuid.UUID][]models.OrderHistory
	promos   map[string]*models.Promotion
	settings map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		products: map[uuid.UUID]models.Product{},
		stock:    map[uuid.UUID]int32{},
		orders:   map[uuid.UUID]*models.Order{},
		items:    map[uuid.UUID][]models.OrderItem{},
		history:  map[uuid.UUID][]models.OrderHistory{},
		promos:   map[string]*models.Promotion{},
		settings: map[string]string{},
	}
}

type journal struct {
	undo []func()
}

func (j *journal) record(f func()) {
	if j != nil {
		j.undo = append(j.undo, f)
	}
}

func (s *memStore) Repo() *repository.Repository { return s.repo(nil) }

func (s *memStore) repo(j *journal) *repository.Repository {
	return &repository.Repository{
		Products:    &memProducts{s: s},
		Inventories: &memInventory{s: s, j: j},
		Orders:      &memOrders{s: s, j: j},
		OrderItems:  &memItems{s: s, j: j},
		History:     &memHistory{s: s, j: j},
		Promotions:  &memPromos{s: s, j: j},
		Settings:    &memSettings{s: s},
	}
}

func (s *memStore) WithTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	j := &journal{}
	if err := fn(s.repo(j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) addProduct(name string, regular int64, sale *int64, stock int32) models.Product {
	p := models.Product{
		ID:           uuid.New(),
		Slug:         strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Name:         name,
		RegularPrice: decimal.NewFromInt(regular),
		IsActive:     true,
	}
	if sale != nil {
		sp := decimal.NewFromInt(*sale)
		p.SalePrice = &sp
	}
	s.mu.Lock()
	s.products[p.ID] = p
	s.stock[p.ID] = stock
	s.mu.Unlock()
	return p
}

func (s *memStore) stockOf(id uuid.UUID) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[id]
}

func (s *memStore) setStatus(id uuid.UUID, st models.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id].Status = st
}

func (s *memStore) setPrice(id uuid.UUID, price int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.RegularPrice = decimal.NewFromInt(price)
	p.SalePrice = nil
	s.products[id] = p
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) productLocked(id uuid.UUID) (models.Product, bool) {
	p, ok := s.products[id]
	if !ok {
		return p, false
	}
	p.Inventory = &models.Inventory{ProductID: id, Available: s.stock[id]}
	return p, true
}

// --- products ---

type memProducts struct{ s *memStore }

func (r *memProducts) Create(_ context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r *memProducts) UpdateFields(_ context.Context, id uuid.UUID, fields map[string]any) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := r.s.products[id]
	if v, ok := fields["is_active"].(bool); ok {
		p.IsActive = v
	}
	r.s.products[id] = p
	return nil
}

func (r *memProducts) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.productLocked(id)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memProducts) GetBySlug(_ context.Context, slug string) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.products {
		if p.Slug == slug {
			out, _ := r.s.productLocked(id)
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memProducts) List(_ context.Context, f repository.ProductListFilter) ([]models.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Product
	for id, p := range r.s.products {
		if f.OnlyActive && !p.IsActive {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		full, _ := r.s.productLocked(id)
		out = append(out, full)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *memProducts) BatchGetByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.productLocked(id); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProducts) EnsureInventoryRow(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.stock[id]; !ok {
		r.s.stock[id] = 0
	}
	return nil
}

// --- inventory ---

type memInventory struct {
	s *memStore
	j *journal
}

func (r *memInventory) Get(_ context.Context, id uuid.UUID) (*models.Inventory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.stock[id]
	if !ok {
		return nil, nil
	}
	return &models.Inventory{ProductID: id, Available: v}, nil
}

func (r *memInventory) SetAvailable(_ context.Context, id uuid.UUID, available int32) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stock[id] = available
	return nil
}

func (r *memInventory) TryDecrement(_ context.Context, id uuid.UUID, qty int32) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.stock[id]
	if !ok || qty <= 0 || v < qty {
		return false, nil
	}
	r.s.stock[id] = v - qty
	r.j.record(func() { r.s.stock[id] += qty })
	return true, nil
}

func (r *memInventory) AdjustAvailable(_ context.Context, id uuid.UUID, delta int32) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.stock[id]
	if !ok || v+delta < 0 {
		return false, nil
	}
	r.s.stock[id] = v + delta
	r.j.record(func() { r.s.stock[id] -= delta })
	return true, nil
}

// --- orders ---

type memOrders struct {
	s *memStore
	j *journal
}

func (r *memOrders) Create(_ context.Context, o *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *o
	cp.Items, cp.History = nil, nil
	r.s.orders[o.ID] = &cp
	id := o.ID
	r.j.record(func() { delete(r.s.orders, id) })
	return nil
}

func (r *memOrders) copyLocked(id uuid.UUID) *models.Order {
	o, ok := r.s.orders[id]
	if !ok {
		return nil
	}
	cp := *o
	cp.Items = append([]models.OrderItem(nil), r.s.items[id]...)
	sort.Slice(cp.Items, func(i, j int) bool { return cp.Items[i].ProductName < cp.Items[j].ProductName })
	cp.History = append([]models.OrderHistory(nil), r.s.history[id]...)
	return &cp
}

func (r *memOrders) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.copyLocked(id), nil
}

func (r *memOrders) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.OrderStatus, extra map[string]any) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	before := *o
	o.Status = to
	if v, ok := extra["payment_status"].(models.PaymentStatus); ok {
		o.PaymentStatus = v
	}
	if v, ok := extra["cancel_reason"].(string); ok {
		o.CancelReason = &v
	}
	r.j.record(func() { *r.s.orders[id] = before })
	return true, nil
}

func (r *memOrders) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status models.PaymentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o, ok := r.s.orders[id]; ok {
		o.PaymentStatus = status
	}
	return nil
}

func (r *memOrders) SetTracking(_ context.Context, id uuid.UUID, tracking, consignment string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.TrackingCode != nil {
		return false, nil
	}
	o.TrackingCode = &tracking
	o.ConsignmentID = &consignment
	o.DispatchedAt = &at
	return true, nil
}

func (r *memOrders) List(_ context.Context, f repository.OrderListFilter) ([]models.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []models.Order
	for id, o := range r.s.orders {
		if f.UserID != nil && (o.UserID == nil || *o.UserID != *f.UserID) {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(o.CustomerName), strings.ToLower(f.Search)) {
			continue
		}
		all = append(all, *r.copyLocked(id))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset >= len(all) {
		return []models.Order{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[f.Offset:end], total, nil
}

func (r *memOrders) CountByStatus(_ context.Context, from, to time.Time) (map[models.OrderStatus]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[models.OrderStatus]int64{}
	for _, o := range r.s.orders {
		if !o.CreatedAt.Before(from) && !o.CreatedAt.After(to) {
			out[o.Status]++
		}
	}
	return out, nil
}

func (r *memOrders) Revenue(_ context.Context, from, to time.Time, exclude []models.OrderStatus) (repository.RevenueRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res := repository.RevenueRow{Revenue: decimal.Zero, DiscountTotal: decimal.Zero}
outer:
	for _, o := range r.s.orders {
		if o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
			continue
		}
		for _, ex := range exclude {
			if o.Status == ex {
				continue outer
			}
		}
		res.Orders++
		res.Revenue = res.Revenue.Add(o.TotalAmount)
		res.DiscountTotal = res.DiscountTotal.Add(o.Discount())
	}
	return res, nil
}

// --- items / history ---

type memItems struct {
	s *memStore
	j *journal
}

func (r *memItems) BulkCreate(_ context.Context, items []models.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range items {
		r.s.items[it.OrderID] = append(r.s.items[it.OrderID], it)
		oid := it.OrderID
		r.j.record(func() { delete(r.s.items, oid) })
	}
	return nil
}

func (r *memItems) GetByOrderID(_ context.Context, id uuid.UUID) ([]models.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]models.OrderItem(nil), r.s.items[id]...), nil
}

func (r *memItems) SumByOrder(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for _, it := range r.s.items[id] {
		sum = sum.Add(it.LineTotal)
	}
	return sum, nil
}

type memHistory struct {
	s *memStore
	j *journal
}

func (r *memHistory) Append(_ context.Context, h *models.OrderHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.history[h.OrderID] = append(r.s.history[h.OrderID], *h)
	oid, n := h.OrderID, len(r.s.history[h.OrderID])
	r.j.record(func() { r.s.history[oid] = r.s.history[oid][:n-1] })
	return nil
}

func (r *memHistory) ListByOrder(_ context.Context, id uuid.UUID) ([]models.OrderHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]models.OrderHistory(nil), r.s.history[id]...), nil
}

// --- promotions / settings ---

type memPromos struct {
	s *memStore
	j *journal
}

func (r *memPromos) Create(_ context.Context, p *models.Promotion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Code = strings.ToUpper(p.Code)
	cp := *p
	r.s.promos[p.Code] = &cp
	return nil
}

func (r *memPromos) GetByCode(_ context.Context, code string) (*models.Promotion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.promos[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memPromos) ConsumeUsage(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.promos {
		if p.ID != id {
			continue
		}
		if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
			return false, nil
		}
		p.UsedCount++
		promo := p
		r.j.record(func() { promo.UsedCount-- })
		return true, nil
	}
	return false, nil
}

func (s *memStore) promo(code string) models.Promotion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.promos[strings.ToUpper(code)]
}

type memSettings struct{ s *memStore }

func (r *memSettings) Get(_ context.Context, key string) (*models.Setting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.settings[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, Value: v}, nil
}

func (r *memSettings) Set(_ context.Context, key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings[key] = value
	return nil
}

func (r *memSettings) SetIfAbsent(_ context.Context, key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.settings[key]; !ok {
		r.s.settings[key] = value
	}
	return nil
}

func (r *memSettings) List(_ context.Context) ([]models.Setting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Setting, 0, len(r.s.settings))
	for k, v := range r.s.settings {
		out = append(out, models.Setting{Key: k, Value: v})
	}
	return out, nil
}

// --- service ports ---

type staticSettings map[string]string

func (s staticSettings) Get(_ context.Context, key string) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", service.ErrSettingNotFound
	}
	return v, nil
}

type memCarts struct {
	mu    sync.Mutex
	carts map[string]*models.Cart
}

func newMemCarts() *memCarts { return &memCarts{carts: map[string]*models.Cart{}} }

func (c *memCarts) Get(_ context.Context, id string) (*models.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cart, ok := c.carts[id]; ok {
		cp := *cart
		cp.Lines = append([]models.CartLine(nil), cart.Lines...)
		return &cp, nil
	}
	return &models.Cart{ID: id}, nil
}

func (c *memCarts) Update(_ context.Context, id string, fn func(*models.Cart) error) (*models.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cart := &models.Cart{ID: id}
	if cur, ok := c.carts[id]; ok {
		cart.Lines = append([]models.CartLine(nil), cur.Lines...)
	}
	if err := fn(cart); err != nil {
		return nil, err
	}
	c.carts[id] = cart
	cp := *cart
	return &cp, nil
}

func (c *memCarts) Clear(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, id)
	return nil
}

type recordingEvents struct {
	mu         sync.Mutex
	placed     []service.OrderPlacedEvent
	changed    []service.OrderStatusChangedEvent
	dispatched []service.OrderDispatchedEvent
}

func (e *recordingEvents) PublishOrderPlaced(_ context.Context, ev service.OrderPlacedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.placed = append(e.placed, ev)
	return nil
}

func (e *recordingEvents) PublishOrderStatusChanged(_ context.Context, ev service.OrderStatusChangedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changed = append(e.changed, ev)
	return nil
}

func (e *recordingEvents) PublishOrderDispatched(_ context.Context, ev service.OrderDispatchedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispatched = append(e.dispatched, ev)
	return nil
}

type MockCourier struct {
	calls            atomic.Int32
	CreateParcelFunc func(ctx context.Context, p service.CourierParcel) (service.CourierReceipt, error)
}

func (m *MockCourier) CreateParcel(ctx context.Context, p service.CourierParcel) (service.CourierReceipt, error) {
	m.calls.Add(1)
	if m.CreateParcelFunc != nil {
		return m.CreateParcelFunc(ctx, p)
	}
	return service.CourierReceipt{ConsignmentID: "1001", TrackingCode: "TRK-" + p.Invoice[:8], Status: "in_review"}, nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]string
	ttls []time.Duration
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]string{}} }

func (l *memLocker) Lock(_ context.Context, key, owner string, ttl time.Duration) (func(context.Context), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ttls = append(l.ttls, ttl)
	if _, ok := l.held[key]; ok {
		return nil, false, nil
	}
	l.held[key] = owner
	return func(context.Context) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key] == owner {
			delete(l.held, key)
		}
	}, true, nil
}

func (l *memLocker) lastTTL() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.ttls) == 0 {
		return 0
	}
	return l.ttls[len(l.ttls)-1]
}

// --- contexts ---

func adminCtx() context.Context {
	ctx := service.WithUserID(context.Background(), uuid.New())
	return service.WithRole(ctx, service.RoleAdmin)
}

func customerCtx(id uuid.UUID) context.Context {
	ctx := service.WithUserID(context.Background(), id)
	return service.WithRole(ctx, service.RoleCustomer)
}

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
