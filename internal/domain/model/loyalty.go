package model

import "time"

type LoyaltyTransactionType string

const (
	LoyaltyEarned   LoyaltyTransactionType = "earned"
	LoyaltyRedeemed LoyaltyTransactionType = "redeemed"
)

// ポイントの増減履歴。Pointsは獲得が正、利用が負。
type LoyaltyTransaction struct {
	ID          int64                  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64                  `gorm:"not null;index" json:"user_id"`
	Points      int64                  `gorm:"not null" json:"points"`
	Type        LoyaltyTransactionType `gorm:"type:varchar(20);not null" json:"type"`
	Source      string                 `gorm:"type:varchar(50);not null" json:"source"`
	OrderID     *int64                 `gorm:"index" json:"order_id,omitempty"`
	Description string                 `gorm:"type:varchar(255)" json:"description"`
	CreatedAt   time.Time              `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
