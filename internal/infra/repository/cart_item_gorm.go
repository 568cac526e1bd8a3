package repository

import (
	"context"

	"reweave/internal/domain/model"

	"gorm.io/gorm"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

// カート明細を一覧取得
func (r *CartItemGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// 明細を取得
func (r *CartItemGormRepository) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("id = ?", cartItemID).
		First(&item).Error
	if err != nil {
		return model.CartItem{}, mapError(err)
	}
	return item, nil
}

// 同じ商品・バリエーションの明細
func (r *CartItemGormRepository) FindByCartAndProduct(ctx context.Context, cartID, productID int64, variantID *int64) (model.CartItem, error) {
	var item model.CartItem

	q := r.db.WithContext(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID)
	err := whereVariant(q, "variant_id", variantID).First(&item).Error
	if err != nil {
		return model.CartItem{}, mapError(err)
	}
	return item, nil
}

func (r *CartItemGormRepository) Create(ctx context.Context, item model.CartItem) (model.CartItem, error) {
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		return model.CartItem{}, mapError(err)
	}
	return item, nil
}

// 明細の数量を更新
func (r *CartItemGormRepository) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Update("quantity", qty)
	return affected(res)
}

func (r *CartItemGormRepository) MoveToCart(ctx context.Context, cartItemID int64, cartID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Update("cart_id", cartID)
	return affected(res)
}

// 明細を削除
func (r *CartItemGormRepository) DeleteByID(ctx context.Context, cartItemID int64) error {
	return affected(r.db.WithContext(ctx).Delete(&model.CartItem{}, cartItemID))
}

// 指定カートの明細を全削除（0件でもエラーにしない）
func (r *CartItemGormRepository) DeleteByCartID(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error
}
