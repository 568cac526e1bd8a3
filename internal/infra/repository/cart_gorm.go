package repository

import (
	"context"
	"errors"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// 持ち主の条件。ユーザー優先
func ownerScope(tx *gorm.DB, owner model.CartOwner) *gorm.DB {
	if owner.IsUser() {
		return tx.Where("user_id = ?", owner.UserID)
	}
	return tx.Where("session_id = ? AND user_id IS NULL", owner.SessionID)
}

// 持ち主のACTIVEカートを取得
func (r *CartGormRepository) FindActiveByOwner(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	var cart model.Cart

	err := ownerScope(r.db.WithContext(ctx), owner).
		Where("status = ?", model.CartStatusActive).
		Order("id desc").
		First(&cart).Error
	if err != nil {
		return model.Cart{}, mapError(err)
	}
	return cart, nil
}

// 持ち主のACTIVEカートを取得し、無ければ作成
// 同時に作られた場合は部分unique indexで弾かれるので、先に作られた方を読み直す。
func (r *CartGormRepository) GetOrCreateActive(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	if !owner.Valid() {
		return model.Cart{}, repo.ErrNotFound
	}

	var cart model.Cart

	//トランザクションで探す→無ければ作る（外側にtxがあればSAVEPOINTになる）
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := lockActive(tx, owner, &cart)

		if findErr == nil {
			return nil
		}

		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		// 無ければ作る
		newCart := model.Cart{
			Status:   model.CartStatusActive,
			Subtotal: decimal.Zero,
			Tax:      decimal.Zero,
			Shipping: decimal.Zero,
			Total:    decimal.Zero,
		}
		if owner.IsUser() {
			uid := owner.UserID
			newCart.UserID = &uid
		} else {
			sid := owner.SessionID
			newCart.SessionID = &sid
		}

		if err := tx.Create(&newCart).Error; err != nil {
			return err
		}

		cart = newCart
		return nil
	})

	if err = mapError(err); errors.Is(err, repo.ErrConflict) {
		// 負けた側。SAVEPOINTは戻っているので同じtxで読み直せる
		err = mapError(lockActive(r.db.WithContext(ctx), owner, &cart))
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func lockActive(tx *gorm.DB, owner model.CartOwner, cart *model.Cart) error {
	return ownerScope(tx.Clauses(clause.Locking{Strength: "UPDATE"}), owner).
		Where("status = ?", model.CartStatusActive).
		Order("id desc").
		First(cart).Error
}

func (r *CartGormRepository) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	var cart model.Cart
	if err := r.db.WithContext(ctx).First(&cart, cartID).Error; err != nil {
		return model.Cart{}, mapError(err)
	}
	return cart, nil
}

// 金額4項目だけ書き戻す
func (r *CartGormRepository) UpdateTotals(ctx context.Context, cart model.Cart) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cart.ID).
		Updates(map[string]interface{}{
			"subtotal": cart.Subtotal,
			"tax":      cart.Tax,
			"shipping": cart.Shipping,
			"total":    cart.Total,
		})
	return affected(res)
}

// carts.statusを更新
func (r *CartGormRepository) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("status", status)
	return affected(res)
}

// ゲストカートをユーザーへ付け替える
func (r *CartGormRepository) Reassign(ctx context.Context, cartID int64, userID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{
			"user_id":    userID,
			"session_id": gorm.Expr("NULL"),
		})
	return affected(res)
}

// 明細ごと消す
func (r *CartGormRepository) Delete(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		return affected(tx.Delete(&model.Cart{}, cartID))
	})
}
