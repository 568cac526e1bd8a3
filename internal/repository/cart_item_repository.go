package repository

import (
	"context"

	"reweave/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)

	// (cart, product, variant) の行。variantIDがnilならvariant無しの行だけ
	FindByCartAndProduct(ctx context.Context, cartID, productID int64, variantID *int64) (model.CartItem, error)

	Create(ctx context.Context, item model.CartItem) (model.CartItem, error)
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error

	// 明細を別のカートへ付け替える（マージ用）
	MoveToCart(ctx context.Context, cartItemID int64, cartID int64) error

	DeleteByID(ctx context.Context, cartItemID int64) error
	DeleteByCartID(ctx context.Context, cartID int64) error
}
