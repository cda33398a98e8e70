package repository

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PromotionRepo interface {
	Create(ctx context.Context, p *models.Promotion) error
	GetByCode(ctx context.Context, code string) (*models.Promotion, error)
	// ConsumeUsage increments used_count unless the usage limit is already reached.
	ConsumeUsage(ctx context.Context, id uuid.UUID) (bool, error)
}

type promotionRepo struct{ db *gorm.DB }

func NewPromotionRepo(db *gorm.DB) PromotionRepo { return &promotionRepo{db: db} }

func (r *promotionRepo) Create(ctx context.Context, p *models.Promotion) error {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	return r.db.WithContext(ctx).Select("*").Create(p).Error
}

func (r *promotionRepo) GetByCode(ctx context.Context, code string) (*models.Promotion, error) {
	var p models.Promotion
	err := r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *promotionRepo) ConsumeUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE promotions
SET used_count = used_count + 1,
    updated_at = now()
WHERE id = @id
  AND (usage_limit IS NULL OR used_count < usage_limit)
`, map[string]any{"id": id})
	return tx.RowsAffected > 0, tx.Error
}
