package model

import "time"

// 在庫レコード。(product_id, variant_id) ごと、拠点ごとに複数行あり得る。
type Inventory struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID         int64     `gorm:"not null;index:idx_inventory_product_variant" json:"product_id"`
	VariantID         *int64    `gorm:"index:idx_inventory_product_variant" json:"variant_id"`
	Location          string    `gorm:"type:varchar(100);not null;default:'main'" json:"location"`
	QuantityAvailable int64     `gorm:"not null;default:0" json:"quantity_available"`
	QuantityReserved  int64     `gorm:"not null;default:0" json:"quantity_reserved"`
	QuantityCommitted int64     `gorm:"not null;default:0" json:"quantity_committed"`
	LowStockThreshold int64     `gorm:"not null;default:5" json:"low_stock_threshold"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// Effective は実際に売れる数量（available - reserved - committed）。
func (i Inventory) Effective() int64 {
	return i.QuantityAvailable - i.QuantityReserved - i.QuantityCommitted
}

// 行をまたいで合計する
func SumEffective(rows []Inventory) int64 {
	var sum int64
	for _, r := range rows {
		sum += r.Effective()
	}
	return sum
}

type MovementType string

const (
	MovementReserve MovementType = "reserve"
	MovementRelease MovementType = "release"
	MovementShip    MovementType = "ship"
	MovementAdjust  MovementType = "adjust"
)

// 在庫の増減履歴
type InventoryMovement struct {
	ID            int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	InventoryID   int64        `gorm:"not null;index" json:"inventory_id"`
	Type          MovementType `gorm:"type:varchar(20);not null" json:"type"`
	Quantity      int64        `gorm:"not null" json:"quantity"`
	ReferenceType string       `gorm:"type:varchar(50)" json:"reference_type"`
	ReferenceID   *int64       `gorm:"index" json:"reference_id"`
	ActorUserID   *int64       `json:"actor_user_id"`
	Reason        string       `gorm:"type:varchar(255)" json:"reason"`
	CreatedAt     time.Time    `gorm:"not null;autoCreateTime" json:"created_at"`
}
