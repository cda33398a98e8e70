package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minDispatchLockTTL = 30 * time.Second
	dispatchLockMargin = 15 * time.Second
	bulkDispatchLimit  = 4
)

// DispatchLockTTL keeps the per-order lock alive for the whole courier call.
func DispatchLockTTL(courierTimeout time.Duration) time.Duration {
	if ttl := courierTimeout + dispatchLockMargin; ttl > minDispatchLockTTL {
		return ttl
	}
	return minDispatchLockTTL
}

type DispatchFailure struct {
	OrderID uuid.UUID `json:"orderId"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	// Soft marks outcomes the caller may ignore, e.g. an order already at the courier.
	Soft bool `json:"soft"`
}

type BulkDispatchResult struct {
	Dispatched []*models.Order   `json:"dispatched"`
	Failed     []DispatchFailure `json:"failed"`
}

type FulfillmentService interface {
	SendToCourier(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	SendBulk(ctx context.Context, orderIDs []uuid.UUID) (*BulkDispatchResult, error)
}

type fulfillmentService struct {
	orders  repository.OrderRepo
	courier CourierGateway
	locker  DispatchLocker
	events  EventBus
	lockTTL time.Duration
	log     *zap.Logger
	now     func() time.Time
}

func NewFulfillmentService(orders repository.OrderRepo, courier CourierGateway, locker DispatchLocker, events EventBus, courierTimeout time.Duration, log *zap.Logger) FulfillmentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &fulfillmentService{
		orders:  orders,
		courier: courier,
		locker:  locker,
		events:  events,
		lockTTL: DispatchLockTTL(courierTimeout),
		log:     log,
		now:     time.Now,
	}
}

func (s *fulfillmentService) SendToCourier(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.dispatch(ctx, orderID)
}

func (s *fulfillmentService) SendBulk(ctx context.Context, orderIDs []uuid.UUID) (*BulkDispatchResult, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if len(orderIDs) == 0 {
		return nil, invalidField("orderIds", "must not be empty")
	}

	ids := dedupeIDs(orderIDs)
	dispatched := make([]*models.Order, len(ids))
	failures := make([]*DispatchFailure, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkDispatchLimit)
	for i, id := range ids {
		g.Go(func() error {
			o, err := s.dispatch(gctx, id)
			if err != nil {
				failures[i] = dispatchFailure(id, err)
				return nil
			}
			dispatched[i] = o
			return nil
		})
	}
	_ = g.Wait() // ошибки собраны поштучно

	res := &BulkDispatchResult{Dispatched: []*models.Order{}, Failed: []DispatchFailure{}}
	for i := range ids {
		switch {
		case dispatched[i] != nil:
			res.Dispatched = append(res.Dispatched, dispatched[i])
		case failures[i] != nil:
			res.Failed = append(res.Failed, *failures[i])
		}
	}
	s.log.Info("bulk courier dispatch",
		zap.Int("requested", len(ids)),
		zap.Int("dispatched", len(res.Dispatched)),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

func (s *fulfillmentService) dispatch(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.locker != nil {
		unlock, ok, err := s.locker.Lock(ctx, "dispatch:"+orderID.String(), uuid.NewString(), s.lockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDispatchInProgress
		}
		defer unlock(context.WithoutCancel(ctx))
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if o.TrackingCode != nil && *o.TrackingCode != "" {
		return nil, ErrAlreadyDispatched
	}
	if o.Status != models.OrderStatusProcessing {
		return nil, fmt.Errorf("%w: status is %s", ErrNotDispatchable, o.Status)
	}

	receipt, err := s.courier.CreateParcel(ctx, CourierParcel{
		Invoice:          o.ID.String(),
		RecipientName:    o.CustomerName,
		RecipientPhone:   normalizePhone(o.CustomerPhone),
		RecipientAddress: o.FullAddress,
		CODAmount:        codAmount(o),
		Note:             "",
	})
	if err != nil {
		s.log.Error("courier create parcel failed", zap.String("order_id", orderID.String()), zap.Error(err))
		if !errors.Is(err, ErrUpstream) {
			err = fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return nil, err
	}
	if receipt.TrackingCode == "" {
		return nil, fmt.Errorf("%w: courier returned no tracking code", ErrUpstream)
	}

	at := s.now()
	ok, err := s.orders.SetTracking(ctx, orderID, receipt.TrackingCode, receipt.ConsignmentID, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyDispatched
	}

	o.TrackingCode = &receipt.TrackingCode
	o.ConsignmentID = &receipt.ConsignmentID
	o.DispatchedAt = &at
	s.log.Info("order sent to courier",
		zap.String("order_id", orderID.String()),
		zap.String("tracking_code", receipt.TrackingCode),
	)

	if s.events != nil {
		if err := s.events.PublishOrderDispatched(ctx, OrderDispatchedEvent{
			OrderID:       o.ID,
			CustomerName:  o.CustomerName,
			CustomerEmail: derefString(o.CustomerEmail),
			TrackingCode:  receipt.TrackingCode,
			ConsignmentID: receipt.ConsignmentID,
			DispatchedAt:  at,
		}); err != nil {
			s.log.Warn("publish order.dispatched failed", zap.Error(err))
		}
	}
	return o, nil
}

// codAmount: prepaid orders are collected as zero by the courier.
func codAmount(o *models.Order) decimal.Decimal {
	if o.PaymentMethod == models.PaymentCashOnDelivery && o.PaymentStatus != models.PaymentStatusPaid {
		return o.TotalAmount
	}
	return decimal.Zero
}

func dispatchFailure(id uuid.UUID, err error) *DispatchFailure {
	f := &DispatchFailure{OrderID: id, Message: err.Error()}
	switch {
	case errors.Is(err, ErrAlreadyDispatched):
		f.Code, f.Soft = "already_dispatched", true
	case errors.Is(err, ErrDispatchInProgress):
		f.Code, f.Soft = "dispatch_in_progress", true
	case errors.Is(err, ErrNotFound):
		f.Code = "not_found"
	case errors.Is(err, ErrNotDispatchable):
		f.Code = "not_dispatchable"
	case errors.Is(err, ErrUpstream):
		f.Code = "upstream_error"
	default:
		f.Code = "internal_error"
	}
	return f
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
