package service

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// Transactor runs fn inside one database transaction. *repository.Repository implements it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *repository.Repository) error) error
}

// SettingsProvider is the site-wide key/value configuration. Get returns ErrSettingNotFound
// when neither the store nor the defaults know the key.
type SettingsProvider interface {
	Get(ctx context.Context, key string) (string, error)
}

type CartStore interface {
	Get(ctx context.Context, cartID string) (*models.Cart, error)
	Update(ctx context.Context, cartID string, fn func(c *models.Cart) error) (*models.Cart, error)
	Clear(ctx context.Context, cartID string) error
}

// KV is the small cache surface used for settings.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type DispatchLocker interface {
	Lock(ctx context.Context, key, owner string, ttl time.Duration) (func(context.Context), bool, error)
}

type CourierParcel struct {
	Invoice          string
	RecipientName    string
	RecipientPhone   string
	RecipientAddress string
	CODAmount        decimal.Decimal
	Note             string
}

type CourierReceipt struct {
	ConsignmentID string
	TrackingCode  string
	Status        string
}

type CourierGateway interface {
	CreateParcel(ctx context.Context, p CourierParcel) (CourierReceipt, error)
}
