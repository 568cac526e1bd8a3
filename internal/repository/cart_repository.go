package repository

import (
	"context"

	"reweave/internal/domain/model"
)

type CartRepository interface {
	// 持ち主のACTIVEカート。無ければErrNotFound
	FindActiveByOwner(ctx context.Context, owner model.CartOwner) (model.Cart, error)

	// 無ければ金額0で作る
	GetOrCreateActive(ctx context.Context, owner model.CartOwner) (model.Cart, error)

	FindByID(ctx context.Context, cartID int64) (model.Cart, error)

	// subtotal/tax/shipping/totalだけを書き戻す
	UpdateTotals(ctx context.Context, cart model.Cart) error

	UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error

	// ゲストカートをユーザーのものにする（session_idは消す）
	Reassign(ctx context.Context, cartID int64, userID int64) error

	Delete(ctx context.Context, cartID int64) error
}
