package service

import (
	"context"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Window returns the rolling window ending at now.
func (p Period) Window(now time.Time) (time.Time, time.Time, bool) {
	var d time.Duration
	switch p {
	case PeriodDay:
		d = 24 * time.Hour
	case PeriodWeek:
		d = 7 * 24 * time.Hour
	case PeriodMonth:
		d = 30 * 24 * time.Hour
	case PeriodYear:
		d = 365 * 24 * time.Hour
	default:
		return time.Time{}, time.Time{}, false
	}
	return now.Add(-d), now, true
}

type AdminOrderQuery struct {
	Status string
	Search string
	Page   int
	Limit  int
}

type OrderPage struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

type Overview struct {
	Period        Period                       `json:"period"`
	From          time.Time                    `json:"from"`
	To            time.Time                    `json:"to"`
	TotalOrders   int64                        `json:"totalOrders"`
	ByStatus      map[models.OrderStatus]int64 `json:"byStatus"`
	Revenue       decimal.Decimal              `json:"revenue"`
	DiscountTotal decimal.Decimal              `json:"discountTotal"`
	AverageOrder  decimal.Decimal              `json:"averageOrder"`
}

type AdminService interface {
	ListOrders(ctx context.Context, q AdminOrderQuery) (*OrderPage, error)
	Overview(ctx context.Context, period Period) (*Overview, error)
}

type adminService struct {
	orders repository.OrderRepo
	now    func() time.Time
}

func NewAdminService(orders repository.OrderRepo) AdminService {
	return &adminService{orders: orders, now: time.Now}
}

func (s *adminService) ListOrders(ctx context.Context, q AdminOrderQuery) (*OrderPage, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	f := repository.OrderListFilter{Search: strings.TrimSpace(q.Search)}
	if q.Status != "" {
		st := models.OrderStatus(strings.ToUpper(q.Status))
		if !st.Valid() {
			return nil, invalidField("status", "unknown status")
		}
		f.Status = &st
	}
	f.Limit, f.Offset = pageToLimitOffset(q.Page, q.Limit)

	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, err
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	return &OrderPage{Orders: orders, Total: total, Page: page, Limit: f.Limit}, nil
}

func (s *adminService) Overview(ctx context.Context, period Period) (*Overview, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if period == "" {
		period = PeriodWeek
	}
	from, to, ok := period.Window(s.now())
	if !ok {
		return nil, invalidField("period", "must be one of day, week, month, year")
	}

	var (
		counts  map[models.OrderStatus]int64
		revenue repository.RevenueRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.orders.CountByStatus(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		revenue, err = s.orders.Revenue(gctx, from, to, []models.OrderStatus{
			models.OrderStatusCancelled, models.OrderStatusRefunded,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Overview{
		Period:        period,
		From:          from,
		To:            to,
		ByStatus:      make(map[models.OrderStatus]int64, len(models.AllOrderStatuses())),
		Revenue:       revenue.Revenue,
		DiscountTotal: revenue.DiscountTotal,
		AverageOrder:  decimal.Zero,
	}
	for _, st := range models.AllOrderStatuses() {
		out.ByStatus[st] = counts[st]
		out.TotalOrders += counts[st]
	}
	if revenue.Orders > 0 {
		out.AverageOrder = revenue.Revenue.Div(decimal.NewFromInt(revenue.Orders)).Round(2)
	}
	return out, nil
}
