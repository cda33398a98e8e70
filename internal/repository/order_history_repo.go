package repository

import (
	"context"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderHistoryRepo is append-only: there is no update or delete.
type OrderHistoryRepo interface {
	Append(ctx context.Context, h *models.OrderHistory) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error)
}

type orderHistoryRepo struct{ db *gorm.DB }

func NewOrderHistoryRepo(db *gorm.DB) OrderHistoryRepo { return &orderHistoryRepo{db: db} }

func (r *orderHistoryRepo) Append(ctx context.Context, h *models.OrderHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *orderHistoryRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistory, error) {
	var rows []models.OrderHistory
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}
