package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ロイヤルティのランク
type LoyaltyTier string

const (
	TierBronze   LoyaltyTier = "bronze"
	TierSilver   LoyaltyTier = "silver"
	TierGold     LoyaltyTier = "gold"
	TierPlatinum LoyaltyTier = "platinum"
)

type User struct {
	ID            int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Email         string      `gorm:"uniqueIndex;not null" json:"email"`
	Name          string      `gorm:"type:varchar(255)" json:"name"`
	PasswordHash  string      `gorm:"column:password_hash;not null" json:"-"`
	Role          Role        `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	TokenVersion  int         `gorm:"not null;default:0" json:"token_version"`
	IsActive      bool        `gorm:"not null;default:true" json:"is_active"`
	LoyaltyPoints int64       `gorm:"not null;default:0" json:"loyalty_points"`
	LoyaltyTier   LoyaltyTier `gorm:"type:varchar(20);not null;default:'bronze'" json:"loyalty_tier"`
	LastLoginAt   *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
