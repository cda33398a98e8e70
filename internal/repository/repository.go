package repository

import (
	"context"

	"gorm.io/gorm"
)

type Repository struct {
	DB          *gorm.DB
	Products    ProductRepo
	Inventories InventoryRepo
	Orders      OrderRepo
	OrderItems  OrderItemRepo
	History     OrderHistoryRepo
	Promotions  PromotionRepo
	Settings    SettingRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:          db,
		Products:    NewProductRepo(db),
		Inventories: NewInventoryRepo(db),
		Orders:      NewOrderRepo(db),
		OrderItems:  NewOrderItemRepo(db),
		History:     NewOrderHistoryRepo(db),
		Promotions:  NewPromotionRepo(db),
		Settings:    NewSettingRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// WithTx runs fn against a copy of the repository bound to one transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
