package repository

import (
	"context"
	"errors"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryRepo interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.Inventory, error)
	SetAvailable(ctx context.Context, productID uuid.UUID, available int32) error

	// TryDecrement атомарно: if available >= qty then available -= qty.
	// false означает, что остатка не хватило, строки нет или qty <= 0.
	TryDecrement(ctx context.Context, productID uuid.UUID, qty int32) (bool, error)
	// AdjustAvailable применяет delta, не давая остатку уйти ниже нуля.
	AdjustAvailable(ctx context.Context, productID uuid.UUID, delta int32) (bool, error)
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepo(db *gorm.DB) InventoryRepo { return &inventoryRepo{db: db} }

func (r *inventoryRepo) Get(ctx context.Context, productID uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	err := r.db.WithContext(ctx).First(&inv, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &inv, err
}

func (r *inventoryRepo) SetAvailable(ctx context.Context, productID uuid.UUID, available int32) error {
	return r.db.WithContext(ctx).Model(&models.Inventory{}).Where("product_id = ?", productID).Update("available", available).Error
}

func (r *inventoryRepo) TryDecrement(ctx context.Context, productID uuid.UUID, qty int32) (bool, error) {
	if qty <= 0 {
		return false, nil
	}
	tx := r.db.WithContext(ctx).Exec(`
UPDATE inventories
SET available = available - @q,
    updated_at = now()
WHERE product_id = @pid
  AND available >= @q
`, map[string]any{
		"pid": productID,
		"q":   qty,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *inventoryRepo) AdjustAvailable(ctx context.Context, productID uuid.UUID, delta int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE inventories
SET available = available + @delta,
    updated_at = now()
WHERE product_id = @pid
  AND available + @delta >= 0
`, map[string]any{
		"pid":   productID,
		"delta": delta,
	})
	return tx.RowsAffected > 0, tx.Error
}
