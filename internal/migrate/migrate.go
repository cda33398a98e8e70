package migrate

import (
	"context"

	"storefront/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto, pg_trgm
	CreateChecks           bool // CHECK-constraint для целостности
	CreateIndexes          bool
	CreateFKsViaSQL        bool
	CreateUpdatedAtTrigger bool
	SeedSettings           map[string]string // значения по умолчанию для site_settings (не перезаписываются)
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

type step struct {
	name string
	sql  string
}

func MigrateStoreDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("starting store database migration")
	db = db.WithContext(ctx)

	if opt.CreateExtensions {
		if err := run(db, log, []step{
			{"extension pgcrypto", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
			{"extension pg_trgm", `CREATE EXTENSION IF NOT EXISTS pg_trgm`},
		}); err != nil {
			return err
		}
	}

	log.Info("creating tables")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Inventory{},
		&models.Promotion{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderHistory{},
		&models.Setting{},
	); err != nil {
		log.Error("failed to create tables", zap.Error(err))
		return err
	}

	if opt.CreateUpdatedAtTrigger {
		if err := run(db, log, []step{{"updated_at trigger", `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated
BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_products_updated ON products;
CREATE TRIGGER trg_products_updated
BEFORE UPDATE ON products
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_promotions_updated ON promotions;
CREATE TRIGGER trg_promotions_updated
BEFORE UPDATE ON promotions
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`}}); err != nil {
			return err
		}
	}

	if opt.CreateChecks {
		if err := run(db, log, checks); err != nil {
			return err
		}
	}

	if opt.CreateIndexes {
		if err := run(db, log, indexes); err != nil {
			return err
		}
	}

	if opt.CreateFKsViaSQL {
		if err := run(db, log, foreignKeys); err != nil {
			return err
		}
	}

	if len(opt.SeedSettings) > 0 {
		log.Info("seeding default site settings", zap.Int("count", len(opt.SeedSettings)))
		for k, v := range opt.SeedSettings {
			if err := db.Exec(`INSERT INTO site_settings (key, value, updated_at) VALUES (?, ?, now()) ON CONFLICT (key) DO NOTHING`, k, v).Error; err != nil {
				log.Error("failed to seed setting", zap.String("key", k), zap.Error(err))
				return err
			}
		}
	}

	log.Info("store database migration finished")
	return nil
}

func run(db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.Exec(s.sql).Error; err != nil {
			log.Error("migration step failed", zap.String("step", s.name), zap.Error(err))
			return err
		}
		log.Debug("migration step applied", zap.String("step", s.name))
	}
	return nil
}

var checks = []step{
	{"chk_orders_status_allowed", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_status_allowed;
ALTER TABLE orders ADD CONSTRAINT chk_orders_status_allowed
  CHECK (status IN ('PENDING','PROCESSING','SHIPPED','DELIVERED','CANCELLED','REFUNDED'));`},
	{"chk_orders_payment_method", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_payment_method;
ALTER TABLE orders ADD CONSTRAINT chk_orders_payment_method
  CHECK (payment_method IN ('CashOnDelivery','bKash','Nagad'));`},
	{"chk_orders_payment_status", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_payment_status;
ALTER TABLE orders ADD CONSTRAINT chk_orders_payment_status
  CHECK (payment_status IN ('UNPAID','PAID','REFUNDED'));`},
	{"chk_orders_amounts_non_negative", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_amounts_non_negative;
ALTER TABLE orders ADD CONSTRAINT chk_orders_amounts_non_negative
  CHECK (subtotal >= 0 AND shipping_cost >= 0 AND total_amount >= 0 AND COALESCE(discount_amount, 0) >= 0);`},
	{"chk_orders_discount_le_subtotal", `
ALTER TABLE orders DROP CONSTRAINT IF EXISTS chk_orders_discount_le_subtotal;
ALTER TABLE orders ADD CONSTRAINT chk_orders_discount_le_subtotal
  CHECK (COALESCE(discount_amount, 0) <= subtotal);`},
	{"chk_order_items_quantity_gt_zero", `
ALTER TABLE order_items DROP CONSTRAINT IF EXISTS chk_order_items_quantity_gt_zero;
ALTER TABLE order_items ADD CONSTRAINT chk_order_items_quantity_gt_zero
  CHECK (quantity > 0);`},
	{"chk_order_items_prices_non_negative", `
ALTER TABLE order_items DROP CONSTRAINT IF EXISTS chk_order_items_prices_non_negative;
ALTER TABLE order_items ADD CONSTRAINT chk_order_items_prices_non_negative
  CHECK (unit_price >= 0 AND line_total >= 0);`},
	{"chk_inventories_available_non_negative", `
ALTER TABLE inventories DROP CONSTRAINT IF EXISTS chk_inventories_available_non_negative;
ALTER TABLE inventories ADD CONSTRAINT chk_inventories_available_non_negative
  CHECK (available >= 0);`},
	{"chk_products_sale_price", `
ALTER TABLE products DROP CONSTRAINT IF EXISTS chk_products_sale_price;
ALTER TABLE products ADD CONSTRAINT chk_products_sale_price
  CHECK (regular_price >= 0 AND (sale_price IS NULL OR (sale_price >= 0 AND sale_price < regular_price)));`},
	{"chk_promotions_type_value", `
ALTER TABLE promotions DROP CONSTRAINT IF EXISTS chk_promotions_type_value;
ALTER TABLE promotions ADD CONSTRAINT chk_promotions_type_value
  CHECK ((type = 'PERCENTAGE' AND value > 0 AND value <= 100) OR (type = 'FIXED_AMOUNT' AND value > 0));`},
	{"chk_promotions_usage", `
ALTER TABLE promotions DROP CONSTRAINT IF EXISTS chk_promotions_usage;
ALTER TABLE promotions ADD CONSTRAINT chk_promotions_usage
  CHECK (used_count >= 0 AND (usage_limit IS NULL OR used_count <= usage_limit));`},
}

var indexes = []step{
	{"ux_order_items_order_product", `CREATE UNIQUE INDEX IF NOT EXISTS ux_order_items_order_product ON order_items (order_id, product_id);`},
	{"ix_orders_user_created", `CREATE INDEX IF NOT EXISTS ix_orders_user_created ON orders (user_id, created_at DESC);`},
	{"ix_orders_status_created", `CREATE INDEX IF NOT EXISTS ix_orders_status_created ON orders (status, created_at DESC);`},
	{"ix_order_history_order_created", `CREATE INDEX IF NOT EXISTS ix_order_history_order_created ON order_history (order_id, created_at);`},
	{"ix_products_name_trgm", `CREATE INDEX IF NOT EXISTS ix_products_name_trgm ON products USING gin (name gin_trgm_ops);`},
	{"ix_orders_customer_name_trgm", `CREATE INDEX IF NOT EXISTS ix_orders_customer_name_trgm ON orders USING gin (customer_name gin_trgm_ops);`},
}

var foreignKeys = []step{
	{"fk_inventories_product", `
ALTER TABLE inventories
  DROP CONSTRAINT IF EXISTS fk_inventories_product,
  ADD CONSTRAINT fk_inventories_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE;`},
	{"fk_order_items_order", `
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_order,
  ADD CONSTRAINT fk_order_items_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE RESTRICT;`},
	{"fk_order_items_product", `
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_product,
  ADD CONSTRAINT fk_order_items_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT;`},
	{"fk_order_history_order", `
ALTER TABLE order_history
  DROP CONSTRAINT IF EXISTS fk_order_history_order,
  ADD CONSTRAINT fk_order_history_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE RESTRICT;`},
}
