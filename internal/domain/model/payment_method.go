package model

import "time"

type PaymentMethodType string

const (
	PaymentMethodCard   PaymentMethodType = "card"
	PaymentMethodFPX    PaymentMethodType = "fpx"
	PaymentMethodWallet PaymentMethodType = "wallet"
)

// 保存済みの支払い方法。Tokenは決済事業者のトークンで外には出さない。
type PaymentMethod struct {
	ID          int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64             `gorm:"not null;index" json:"user_id"`
	Type        PaymentMethodType `gorm:"type:varchar(20);not null" json:"type"`
	Provider    string            `gorm:"type:varchar(50);not null" json:"provider"`
	Token       string            `gorm:"type:varchar(255);not null" json:"-"`
	LastFour    string            `gorm:"type:varchar(4)" json:"last_four,omitempty"`
	ExpiryMonth string            `gorm:"type:varchar(2)" json:"expiry_month,omitempty"`
	ExpiryYear  string            `gorm:"type:varchar(4)" json:"expiry_year,omitempty"`
	IsDefault   bool              `gorm:"not null;default:false" json:"is_default"`
	Metadata    map[string]string `gorm:"type:jsonb;serializer:json" json:"metadata"`
	CreatedAt   time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
