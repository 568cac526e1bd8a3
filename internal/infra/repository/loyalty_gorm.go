package repository

import (
	"context"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"gorm.io/gorm"
)

type loyaltyGormRepository struct {
	db *gorm.DB
}

func NewLoyaltyGormRepository(db *gorm.DB) repo.LoyaltyRepository {
	return &loyaltyGormRepository{db: db}
}

func (r *loyaltyGormRepository) Create(ctx context.Context, t model.LoyaltyTransaction) error {
	return r.db.WithContext(ctx).Create(&t).Error
}

// 新しい順
func (r *loyaltyGormRepository) ListByUserID(ctx context.Context, userID int64, page, limit int) ([]model.LoyaltyTransaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.LoyaltyTransaction{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.LoyaltyTransaction{}, 0, err
	}

	var list []model.LoyaltyTransaction
	offset := (page - 1) * limit
	if err := q.Order("id desc").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return []model.LoyaltyTransaction{}, 0, err
	}
	return list, total, nil
}
