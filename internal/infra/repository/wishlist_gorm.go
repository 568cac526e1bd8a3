package repository

import (
	"context"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"gorm.io/gorm"
)

type wishlistGormRepository struct {
	db *gorm.DB
}

func NewWishlistGormRepository(db *gorm.DB) repo.WishlistRepository {
	return &wishlistGormRepository{db: db}
}

func (r *wishlistGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.WishlistItem, error) {
	var list []model.WishlistItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// (user_id, product_id) のunique indexに当たったらErrConflict
func (r *wishlistGormRepository) Add(ctx context.Context, item model.WishlistItem) (model.WishlistItem, error) {
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		return model.WishlistItem{}, mapError(err)
	}
	return item, nil
}

func (r *wishlistGormRepository) Remove(ctx context.Context, userID, productID int64) error {
	return affected(r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&model.WishlistItem{}))
}

func (r *wishlistGormRepository) Clear(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.WishlistItem{}).Error
}
