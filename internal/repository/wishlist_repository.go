package repository

import (
	"context"

	"reweave/internal/domain/model"
)

type WishlistRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.WishlistItem, error)
	// 既に入っていればErrConflict
	Add(ctx context.Context, item model.WishlistItem) (model.WishlistItem, error)
	Remove(ctx context.Context, userID, productID int64) error
	Clear(ctx context.Context, userID int64) error
}
