package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusArchived ProductStatus = "archived"
)

type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Category    string          `gorm:"type:varchar(100);index" json:"category"`
	Images      []string        `gorm:"type:jsonb;serializer:json" json:"images"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Status      ProductStatus   `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// 公開中か
func (p Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// サイズ・色などのバリエーション。Priceが入っていれば商品価格より優先。
type ProductVariant struct {
	ID        int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64               `gorm:"not null;index" json:"product_id"`
	Name      string              `gorm:"type:varchar(255);not null" json:"name"`
	SKU       string              `gorm:"type:varchar(100);uniqueIndex" json:"sku"`
	Price     decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"price"`
	CreatedAt time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time           `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// UnitPrice はカート追加時点で使う単価を返す。
func UnitPrice(p Product, v *ProductVariant) decimal.Decimal {
	if v != nil && v.Price.Valid {
		return v.Price.Decimal
	}
	return p.Price
}
