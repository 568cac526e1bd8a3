package db

import (
	"reweave/internal/domain/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(dsn string, log *zap.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	log.Info("database connected")
	return gdb, nil
}

// Models はAutoMigrateの対象
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Inventory{},
		&model.InventoryMovement{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Address{},
		&model.PaymentMethod{},
		&model.WishlistItem{},
		&model.LoyaltyTransaction{},
		&model.AuditLog{},
	}
}

// タグで書けない部分unique index
var uniqueIndexes = []string{
	// ACTIVEカートは持ち主ごとに1つ
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_active_user ON carts (user_id) WHERE status = 'active' AND user_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_active_session ON carts (session_id) WHERE status = 'active' AND user_id IS NULL`,
	// 同じ商品・バリエーションの明細は1行
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_line ON cart_items (cart_id, product_id, COALESCE(variant_id, 0))`,
}

// Migrate はローカル起動用。本番のスキーマは別管理。
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return err
	}
	for _, stmt := range uniqueIndexes {
		if err := gdb.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
