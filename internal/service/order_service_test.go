package service_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/google/uuid"
)

type orderEnv struct {
	store  *memStore
	carts  *memCarts
	events *recordingEvents
	svc    service.OrderService
}

func newOrderEnv(t *testing.T, settings staticSettings) *orderEnv {
	t.Helper()
	if settings == nil {
		settings = staticSettings{}
	}
	store := newMemStore()
	repo := store.Repo()
	env := &orderEnv{store: store, carts: newMemCarts(), events: &recordingEvents{}}
	env.svc = service.NewOrderService(service.OrderDeps{
		Repo:       repo,
		Tx:         store,
		Carts:      env.carts,
		Settings:   settings,
		Promotions: service.NewPromotionService(repo, settings),
		Events:     env.events,
	})
	return env
}

func guestInput(items ...service.LineInput) service.CreateOrderInput {
	return service.CreateOrderInput{
		Items: items,
		Customer: service.CustomerInfo{
			Name:        "Rahim Uddin",
			Email:       "rahim@example.com",
			Phone:       "+880 1711-223344",
			FullAddress: "House 12, Road 5, Dhanmondi, Dhaka",
		},
		PaymentMethod: models.PaymentCashOnDelivery,
	}
}

func line(id uuid.UUID, qty int32) service.LineInput {
	return service.LineInput{ProductID: id, Quantity: qty}
}

func (e *orderEnv) place(t *testing.T, items ...service.LineInput) *models.Order {
	t.Helper()
	o, err := e.svc.CreateOrder(context.Background(), guestInput(items...))
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return o
}

func TestCreateOrder_GuestSalePriceAndStock(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Tea Kettle", 1000, ptr(int64(800)), 3)

	o := env.place(t, line(p.ID, 2))

	if !o.Subtotal.Equal(dec("1600")) {
		t.Fatalf("subtotal = %s, want 1600", o.Subtotal)
	}
	if !o.ShippingCost.IsZero() {
		t.Fatalf("shipping = %s, want 0", o.ShippingCost)
	}
	if !o.TotalAmount.Equal(dec("1600")) {
		t.Fatalf("total = %s, want 1600", o.TotalAmount)
	}
	if o.Status != models.OrderStatusPending || o.PaymentStatus != models.PaymentStatusUnpaid {
		t.Fatalf("unexpected state %s/%s", o.Status, o.PaymentStatus)
	}
	if o.UserID != nil {
		t.Fatalf("guest order must have no user")
	}
	if len(o.Items) != 1 || !o.Items[0].UnitPrice.Equal(dec("800")) || o.Items[0].ProductName != "Tea Kettle" {
		t.Fatalf("unexpected items %+v", o.Items)
	}
	if len(o.History) != 1 || o.History[0].Status != models.OrderStatusPending || o.History[0].Comment != "Order placed" {
		t.Fatalf("unexpected history %+v", o.History)
	}
	if got := env.store.stockOf(p.ID); got != 1 {
		t.Fatalf("stock = %d, want 1", got)
	}
	if len(env.events.placed) != 1 || env.events.placed[0].OrderID != o.ID {
		t.Fatalf("expected one order.placed event")
	}

	_, err := env.svc.CreateOrder(context.Background(), guestInput(line(p.ID, 2)))
	if !errors.Is(err, service.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if got := env.store.stockOf(p.ID); got != 1 {
		t.Fatalf("stock after rejected order = %d, want 1", got)
	}
	if env.store.orderCount() != 1 {
		t.Fatalf("rejected order must not be stored")
	}
}

func TestCreateOrder_ShippingThreshold(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		qty      int32
		shipping string
		total    string
	}{
		{"below", 200, 2, "60", "460"},
		{"exactly at threshold", 250, 2, "60", "560"},
		{"above", 251, 2, "0", "502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newOrderEnv(t, nil)
			p := env.store.addProduct("Mug", tt.price, nil, 10)
			o := env.place(t, line(p.ID, tt.qty))
			if !o.ShippingCost.Equal(dec(tt.shipping)) {
				t.Fatalf("shipping = %s, want %s", o.ShippingCost, tt.shipping)
			}
			if !o.TotalAmount.Equal(dec(tt.total)) {
				t.Fatalf("total = %s, want %s", o.TotalAmount, tt.total)
			}
		})
	}
}

func TestCreateOrder_ShippingFromSettings(t *testing.T) {
	env := newOrderEnv(t, staticSettings{
		service.SettingFreeShippingThreshold: "1000",
		service.SettingFlatShippingFee:       "120",
	})
	p := env.store.addProduct("Mug", 300, nil, 10)
	o := env.place(t, line(p.ID, 3))
	if !o.ShippingCost.Equal(dec("120")) || !o.TotalAmount.Equal(dec("1020")) {
		t.Fatalf("got shipping %s total %s", o.ShippingCost, o.TotalAmount)
	}
}

func TestCreateOrder_MergesDuplicateLines(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Plate", 100, nil, 10)
	o := env.place(t, line(p.ID, 1), line(p.ID, 2))
	if len(o.Items) != 1 || o.Items[0].Quantity != 3 {
		t.Fatalf("expected one merged line of 3, got %+v", o.Items)
	}
	if env.store.stockOf(p.ID) != 7 {
		t.Fatalf("stock = %d, want 7", env.store.stockOf(p.ID))
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Plate", 100, nil, 10)

	in := service.CreateOrderInput{Items: []service.LineInput{line(p.ID, 1)}, Customer: service.CustomerInfo{Phone: "12345", Email: "not-an-email"}}
	_, err := env.svc.CreateOrder(context.Background(), in)

	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{"customerName": false, "customerPhone": false, "fullAddress": false, "customerEmail": false, "paymentMethod": false}
	for _, f := range verr.Fields {
		want[f.Field] = true
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("missing violation for %s", field)
		}
	}
	if env.store.stockOf(p.ID) != 10 {
		t.Fatalf("stock must be untouched")
	}
}

func TestCreateOrder_EmptyOrder(t *testing.T) {
	env := newOrderEnv(t, nil)
	_, err := env.svc.CreateOrder(context.Background(), guestInput())
	if !errors.Is(err, service.ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
}

func TestCreateOrder_UnknownAndInactiveProducts(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Hidden", 100, nil, 10)
	if err := env.store.Repo().Products.UpdateFields(context.Background(), p.ID, map[string]any{"is_active": false}); err != nil {
		t.Fatal(err)
	}

	for _, id := range []uuid.UUID{uuid.New(), p.ID} {
		_, err := env.svc.CreateOrder(context.Background(), guestInput(line(id, 1)))
		var verr *service.ValidationError
		if !errors.As(err, &verr) || verr.Fields[0].Field != "items[0].productId" {
			t.Fatalf("expected items[0].productId violation, got %v", err)
		}
	}
}

func TestCreateOrder_QuantityAboveLineMaximum(t *testing.T) {
	env := newOrderEnv(t, staticSettings{service.SettingMaxLineQuantity: "5"})
	p := env.store.addProduct("Spoon", 10, nil, 100)

	_, err := env.svc.CreateOrder(context.Background(), guestInput(line(p.ID, 6)))
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if env.store.stockOf(p.ID) != 100 {
		t.Fatalf("stock must be untouched")
	}
}

func TestCreateOrder_MergedQuantityCannotOverflow(t *testing.T) {
	tests := []struct {
		name  string
		items func(id uuid.UUID) []service.LineInput
	}{
		{"max int32 twice", func(id uuid.UUID) []service.LineInput {
			return []service.LineInput{line(id, math.MaxInt32), line(id, math.MaxInt32)}
		}},
		{"merged lines above the line maximum", func(id uuid.UUID) []service.LineInput {
			return []service.LineInput{line(id, 6), line(id, 6)}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newOrderEnv(t, nil)
			p := env.store.addProduct("Jug", 100, nil, 3)

			o, err := env.svc.CreateOrder(context.Background(), guestInput(tt.items(p.ID)...))
			var verr *service.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got order %+v err %v", o, err)
			}
			if got := env.store.stockOf(p.ID); got != 3 {
				t.Fatalf("stock = %d, want 3", got)
			}
			if env.store.orderCount() != 0 {
				t.Fatalf("no order must be stored")
			}
		})
	}
}

func TestCreateOrder_FromCartClearsCart(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Pan", 700, nil, 5)
	cartID := "guest:" + uuid.NewString()
	_, _ = env.carts.Update(context.Background(), cartID, func(c *models.Cart) error {
		c.Lines = append(c.Lines, models.CartLine{ID: uuid.New(), ProductID: p.ID, Quantity: 2})
		return nil
	})

	in := guestInput()
	in.CartID = cartID
	o, err := env.svc.CreateOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !o.TotalAmount.Equal(dec("1400")) {
		t.Fatalf("total = %s, want 1400", o.TotalAmount)
	}
	cart, _ := env.carts.Get(context.Background(), cartID)
	if len(cart.Lines) != 0 {
		t.Fatalf("cart must be cleared after the order")
	}
}

func TestCreateOrder_ProfileFillsMissingContact(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Pan", 700, nil, 5)

	uid := uuid.New()
	ctx := service.WithProfile(customerCtx(uid), service.Profile{Name: "Karim", Email: "karim@example.com", Phone: "01811000000"})
	o, err := env.svc.CreateOrder(ctx, service.CreateOrderInput{
		Items:         []service.LineInput{line(p.ID, 1)},
		Customer:      service.CustomerInfo{FullAddress: "Chittagong"},
		PaymentMethod: models.PaymentBKash,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.UserID == nil || *o.UserID != uid {
		t.Fatalf("order must belong to the caller")
	}
	if o.CustomerName != "Karim" || o.CustomerPhone != "01811000000" {
		t.Fatalf("profile not applied: %+v", o)
	}
}

func TestCreateOrder_SnapshotSurvivesPriceChange(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Lamp", 900, nil, 5)
	o := env.place(t, line(p.ID, 1))

	env.store.setPrice(p.ID, 1500)

	got, err := env.store.Repo().Orders.GetByID(context.Background(), o.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Items[0].UnitPrice.Equal(dec("900")) {
		t.Fatalf("unit price changed to %s", got.Items[0].UnitPrice)
	}
	sum := got.Subtotal.Sub(got.Discount()).Add(got.ShippingCost)
	if !sum.Equal(got.TotalAmount) {
		t.Fatalf("total %s != subtotal - discount + shipping %s", got.TotalAmount, sum)
	}
}

func TestCreateOrder_Promotions(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Tea Kettle", 1000, ptr(int64(800)), 10)
	repo := env.store.Repo()
	ctx := context.Background()
	_ = repo.Promotions.Create(ctx, &models.Promotion{Code: "save10", Type: models.PromotionPercentage, Value: dec("10"), IsActive: true, UsageLimit: ptr(int32(1))})

	first := guestInput(line(p.ID, 2))
	first.PromoCode = "SAVE10"
	o, err := env.svc.CreateOrder(ctx, first)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !o.Discount().Equal(dec("160")) || !o.TotalAmount.Equal(dec("1440")) {
		t.Fatalf("discount %s total %s", o.Discount(), o.TotalAmount)
	}
	if o.PromotionCode == nil || *o.PromotionCode != "SAVE10" {
		t.Fatalf("promotion code not recorded")
	}
	if env.store.promo("SAVE10").UsedCount != 1 {
		t.Fatalf("usage must be consumed")
	}

	in := guestInput(line(p.ID, 1))
	in.PromoCode = "save10"
	_, err = env.svc.CreateOrder(ctx, in)
	if !errors.Is(err, service.ErrInvalidPromotion) {
		t.Fatalf("expected ErrInvalidPromotion, got %v", err)
	}
	if env.store.stockOf(p.ID) != 8 {
		t.Fatalf("stock = %d, want 8", env.store.stockOf(p.ID))
	}

	in.PromoCode = "NOPE"
	if _, err = env.svc.CreateOrder(ctx, in); !errors.Is(err, service.ErrInvalidPromotion) {
		t.Fatalf("unknown code: expected ErrInvalidPromotion, got %v", err)
	}
}

func TestCreateOrder_ConcurrentOrdersNeverOversell(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Limited", 100, nil, 5)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		rejected int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.CreateOrder(context.Background(), guestInput(line(p.ID, 1)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, service.ErrOutOfStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success != 5 || rejected != 15 {
		t.Fatalf("success=%d rejected=%d, want 5/15", success, rejected)
	}
	if env.store.stockOf(p.ID) != 0 {
		t.Fatalf("stock = %d, want 0", env.store.stockOf(p.ID))
	}
	if env.store.orderCount() != 5 {
		t.Fatalf("orders = %d, want 5", env.store.orderCount())
	}
}

func TestTransitionStatus_RequiresAdmin(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Cup", 100, nil, 5)
	o := env.place(t, line(p.ID, 1))

	_, err := env.svc.TransitionStatus(context.Background(), o.ID, models.OrderStatusProcessing, "")
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	_, err = env.svc.TransitionStatus(customerCtx(uuid.New()), o.ID, models.OrderStatusProcessing, "")
	if !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	_, err = env.svc.TransitionStatus(adminCtx(), o.ID, models.OrderStatus("LOST"), "")
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	_, err = env.svc.TransitionStatus(adminCtx(), uuid.New(), models.OrderStatusProcessing, "")
	if !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestTransitionStatus_MatchesStateMachine(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Cup", 100, nil, 1000)
	statuses := models.AllOrderStatuses()

	for _, from := range statuses {
		for _, to := range statuses {
			o := env.place(t, line(p.ID, 1))
			env.store.setStatus(o.ID, from)

			got, err := env.svc.TransitionStatus(adminCtx(), o.ID, to, "")
			if service.CanTransition(from, to) {
				if err != nil {
					t.Fatalf("%s -> %s: unexpected error %v", from, to, err)
				}
				if got.Status != to {
					t.Fatalf("%s -> %s: status %s", from, to, got.Status)
				}
				last := got.History[len(got.History)-1]
				if last.Status != to || last.Comment != "Status changed to "+string(to) {
					t.Fatalf("%s -> %s: history %+v", from, to, last)
				}
				continue
			}
			if !errors.Is(err, service.ErrInvalidTransition) {
				t.Fatalf("%s -> %s: expected ErrInvalidTransition, got %v", from, to, err)
			}
		}
	}
}

func TestTransitionStatus_FullWalkAndCOD(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Cup", 100, nil, 5)
	o := env.place(t, line(p.ID, 1))
	ctx := adminCtx()

	walk := []models.OrderStatus{models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered}
	var got *models.Order
	var err error
	for _, st := range walk {
		got, err = env.svc.TransitionStatus(ctx, o.ID, st, "")
		if err != nil {
			t.Fatalf("-> %s: %v", st, err)
		}
	}
	if got.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("delivered COD order must be PAID, got %s", got.PaymentStatus)
	}

	seen := make([]models.OrderStatus, 0, len(got.History))
	for _, h := range got.History {
		seen = append(seen, h.Status)
	}
	if !service.ValidWalk(seen) {
		t.Fatalf("history is not a valid walk: %v", seen)
	}

	got, err = env.svc.TransitionStatus(ctx, o.ID, models.OrderStatusRefunded, "returned damaged")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got.PaymentStatus != models.PaymentStatusRefunded {
		t.Fatalf("refunded order payment = %s", got.PaymentStatus)
	}
	if len(env.events.changed) != 4 {
		t.Fatalf("status events = %d, want 4", len(env.events.changed))
	}
}

func TestTransitionStatus_PrepaidDeliveryKeepsPaymentStatus(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Cup", 100, nil, 5)
	in := guestInput(line(p.ID, 1))
	in.PaymentMethod = models.PaymentNagad
	o, err := env.svc.CreateOrder(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	env.store.setStatus(o.ID, models.OrderStatusShipped)

	got, err := env.svc.TransitionStatus(adminCtx(), o.ID, models.OrderStatusDelivered, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.PaymentStatus != models.PaymentStatusUnpaid {
		t.Fatalf("prepaid order payment changed to %s", got.PaymentStatus)
	}
}

func TestCancel_RestocksBeforeShipment(t *testing.T) {
	tests := []struct {
		from      models.OrderStatus
		wantStock int32
	}{
		{models.OrderStatusPending, 5},
		{models.OrderStatusProcessing, 5},
		{models.OrderStatusShipped, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			env := newOrderEnv(t, nil)
			p := env.store.addProduct("Bowl", 100, nil, 5)
			o := env.place(t, line(p.ID, 2))
			env.store.setStatus(o.ID, tt.from)

			got, err := env.svc.TransitionStatus(adminCtx(), o.ID, models.OrderStatusCancelled, "customer request")
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if got.CancelReason == nil || *got.CancelReason != "customer request" {
				t.Fatalf("cancel reason not stored")
			}
			if s := env.store.stockOf(p.ID); s != tt.wantStock {
				t.Fatalf("stock = %d, want %d", s, tt.wantStock)
			}
		})
	}
}

func TestCancelOrder_Guest(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Bowl", 100, nil, 5)
	o := env.place(t, line(p.ID, 1))
	ctx := context.Background()

	_, err := env.svc.CancelOrder(ctx, o.ID, service.CancelInput{Contact: "someone@else.com"})
	if !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("wrong contact: expected ErrOrderNotFound, got %v", err)
	}
	_, err = env.svc.CancelOrder(ctx, o.ID, service.CancelInput{})
	if !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("no contact: expected ErrOrderNotFound, got %v", err)
	}

	got, err := env.svc.CancelOrder(ctx, o.ID, service.CancelInput{Contact: "01711223344", Reason: "changed my mind"})
	if err != nil {
		t.Fatalf("cancel with phone: %v", err)
	}
	if got.Status != models.OrderStatusCancelled {
		t.Fatalf("status = %s", got.Status)
	}
	if env.store.stockOf(p.ID) != 5 {
		t.Fatalf("stock not restored")
	}
}

func TestCancelOrder_LongMultibyteReason(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Bowl", 100, nil, 5)
	o := env.place(t, line(p.ID, 1))

	reason := "a" + strings.Repeat("অ", 300)
	got, err := env.svc.CancelOrder(context.Background(), o.ID, service.CancelInput{Contact: "rahim@example.com", Reason: reason})
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if got.CancelReason == nil || !utf8.ValidString(*got.CancelReason) || len(*got.CancelReason) > 500 {
		t.Fatalf("cancel reason not truncated on a rune boundary: %v", got.CancelReason)
	}
	history, _ := env.store.Repo().History.ListByOrder(context.Background(), o.ID)
	last := history[len(history)-1].Comment
	if !utf8.ValidString(last) || len(last) > 500 || !strings.HasPrefix(reason, last) {
		t.Fatalf("history comment len=%d valid=%v", len(last), utf8.ValidString(last))
	}
}

func TestCancelOrder_CustomerCannotCancelShipped(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Bowl", 100, nil, 5)
	uid := uuid.New()
	ctx := customerCtx(uid)
	o, err := env.svc.CreateOrder(ctx, guestInput(line(p.ID, 1)))
	if err != nil {
		t.Fatal(err)
	}
	env.store.setStatus(o.ID, models.OrderStatusShipped)

	_, err = env.svc.CancelOrder(ctx, o.ID, service.CancelInput{})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	_, err = env.svc.CancelOrder(customerCtx(uuid.New()), o.ID, service.CancelInput{})
	if !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("other customer: expected ErrOrderNotFound, got %v", err)
	}

	// админ может отменить и отправленный заказ
	if _, err := env.svc.CancelOrder(adminCtx(), o.ID, service.CancelInput{}); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	env := newOrderEnv(t, nil)
	p := env.store.addProduct("Bowl", 100, nil, 5)
	o := env.place(t, line(p.ID, 1))

	if _, err := env.svc.UpdatePaymentStatus(customerCtx(uuid.New()), o.ID, models.PaymentStatusPaid); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	got, err := env.svc.UpdatePaymentStatus(adminCtx(), o.ID, models.PaymentStatusPaid)
	if err != nil {
		t.Fatal(err)
	}
	if got.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("payment = %s", got.PaymentStatus)
	}
	if _, err := env.svc.UpdatePaymentStatus(adminCtx(), o.ID, "LATER"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestCreateOrder_Clock(t *testing.T) {
	store := newMemStore()
	repo := store.Repo()
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := service.NewOrderService(service.OrderDeps{
		Repo:       repo,
		Tx:         store,
		Carts:      newMemCarts(),
		Promotions: service.NewPromotionService(repo, nil),
		Now:        func() time.Time { return fixed },
	})
	p := store.addProduct("Clock", 100, nil, 1)
	o, err := svc.CreateOrder(context.Background(), guestInput(line(p.ID, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if !o.CreatedAt.Equal(fixed) || !o.History[0].CreatedAt.Equal(fixed) {
		t.Fatalf("timestamps must come from the injected clock")
	}
}
