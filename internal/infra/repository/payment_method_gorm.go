package repository

import (
	"context"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"gorm.io/gorm"
)

type paymentMethodGormRepository struct {
	db *gorm.DB
}

func NewPaymentMethodGormRepository(db *gorm.DB) repo.PaymentMethodRepository {
	return &paymentMethodGormRepository{db: db}
}

func (r *paymentMethodGormRepository) Create(ctx context.Context, pm model.PaymentMethod) (model.PaymentMethod, error) {
	if err := r.db.WithContext(ctx).Create(&pm).Error; err != nil {
		return model.PaymentMethod{}, err
	}
	return pm, nil
}

func (r *paymentMethodGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.PaymentMethod, error) {
	var list []model.PaymentMethod
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *paymentMethodGormRepository) FindByIDForUser(ctx context.Context, id, userID int64) (model.PaymentMethod, error) {
	var pm model.PaymentMethod
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&pm).Error; err != nil {
		return model.PaymentMethod{}, mapError(err)
	}
	return pm, nil
}

// tokenとtypeは作り直しで変える
func (r *paymentMethodGormRepository) Update(ctx context.Context, pm model.PaymentMethod) error {
	result := r.db.WithContext(ctx).
		Model(&model.PaymentMethod{}).
		Where("id = ? AND user_id = ?", pm.ID, pm.UserID).
		Select("provider", "last_four", "expiry_month", "expiry_year", "metadata").
		Updates(&pm)
	return affected(result)
}

func (r *paymentMethodGormRepository) Delete(ctx context.Context, id, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.PaymentMethod{})
	return affected(result)
}

func (r *paymentMethodGormRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.PaymentMethod{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// 他を全部falseにしてから指定だけtrue
func (r *paymentMethodGormRepository) SetDefault(ctx context.Context, userID, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.PaymentMethod{}).
			Where("id = ? AND user_id = ?", id, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return repo.ErrNotFound
		}

		if err := tx.Model(&model.PaymentMethod{}).
			Where("user_id = ? AND is_default = TRUE", userID).
			Update("is_default", false).Error; err != nil {
			return err
		}

		return affected(tx.Model(&model.PaymentMethod{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("is_default", true))
	})
}
