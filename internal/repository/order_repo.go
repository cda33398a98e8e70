package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderListFilter struct {
	UserID *uuid.UUID
	Status *models.OrderStatus
	Search string
	Limit  int
	Offset int
}

// RevenueRow is the aggregate over a period window.
type RevenueRow struct {
	Orders        int64
	Revenue       decimal.Decimal
	DiscountTotal decimal.Decimal
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, extra map[string]any) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error
	SetTracking(ctx context.Context, id uuid.UUID, trackingCode, consignmentID string, at time.Time) (bool, error)
	List(ctx context.Context, f OrderListFilter) ([]models.Order, int64, error)
	CountByStatus(ctx context.Context, from, to time.Time) (map[models.OrderStatus]int64, error)
	Revenue(ctx context.Context, from, to time.Time, exclude []models.OrderStatus) (RevenueRow, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

// Create сохраняет только сам заказ; позиции и история пишутся своими репозиториями.
func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(o).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var ord models.Order
	err := r.withDetails(r.db.WithContext(ctx)).First(&ord, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, extra map[string]any) (bool, error) {
	upd := map[string]any{"status": to}
	for k, v := range extra {
		upd[k] = v
	}
	tx := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(upd)
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status models.PaymentStatus) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("payment_status", status).Error
}

func (r *orderRepo) SetTracking(ctx context.Context, id uuid.UUID, trackingCode, consignmentID string, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND tracking_code IS NULL", id).
		Updates(map[string]any{
			"tracking_code":  trackingCode,
			"consignment_id": consignmentID,
			"dispatched_at":  at,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepo) List(ctx context.Context, f OrderListFilter) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})

	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		q = q.Where("(CAST(id AS text) ILIKE ? OR customer_name ILIKE ? OR customer_phone ILIKE ? OR customer_email ILIKE ? OR tracking_code ILIKE ?)",
			like, like, like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []models.Order
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Preload("Items").Find(&list).Error
	return list, total, err
}

func (r *orderRepo) CountByStatus(ctx context.Context, from, to time.Time) (map[models.OrderStatus]int64, error) {
	type row struct {
		Status models.OrderStatus
		Cnt    int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS cnt").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.OrderStatus]int64, len(rows))
	for _, rw := range rows {
		out[rw.Status] = rw.Cnt
	}
	return out, nil
}

func (r *orderRepo) Revenue(ctx context.Context, from, to time.Time, exclude []models.OrderStatus) (RevenueRow, error) {
	var res RevenueRow
	q := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("COUNT(*) AS orders, COALESCE(SUM(total_amount),0) AS revenue, COALESCE(SUM(discount_amount),0) AS discount_total").
		Where("created_at >= ? AND created_at < ?", from, to)
	if len(exclude) > 0 {
		q = q.Where("status NOT IN ?", exclude)
	}
	err := q.Scan(&res).Error
	return res, err
}

func (r *orderRepo) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("product_name ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}
