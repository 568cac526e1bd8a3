package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusCompleted CartStatus = "completed"
)

// ユーザーかゲストセッションのどちらかが持つ。ACTIVEは持ち主ごとに1つ（部分unique index、db.Migrate）。
// 金額カラムは読み取り用のキャッシュで、正は明細から毎回計算する。
type Cart struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *int64          `gorm:"index" json:"user_id"`
	SessionID *string         `gorm:"type:varchar(100);index" json:"session_id"`
	Status    CartStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"subtotal"`
	Tax       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tax"`
	Shipping  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"shipping"`
	Total     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// カートの持ち主。UserIDがあればSessionIDより優先。
type CartOwner struct {
	UserID    int64
	SessionID string
}

func (o CartOwner) IsUser() bool {
	return o.UserID > 0
}

func (o CartOwner) Valid() bool {
	return o.UserID > 0 || o.SessionID != ""
}

// このカートの持ち主か
func (c Cart) OwnedBy(o CartOwner) bool {
	if o.IsUser() {
		return c.UserID != nil && *c.UserID == o.UserID
	}
	return o.SessionID != "" && c.SessionID != nil && *c.SessionID == o.SessionID
}
