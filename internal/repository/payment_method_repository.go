package repository

import (
	"context"

	"reweave/internal/domain/model"
)

// 保存済み支払い方法。住所と同じ形。
type PaymentMethodRepository interface {
	Create(ctx context.Context, pm model.PaymentMethod) (model.PaymentMethod, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.PaymentMethod, error)
	FindByIDForUser(ctx context.Context, id, userID int64) (model.PaymentMethod, error)
	Update(ctx context.Context, pm model.PaymentMethod) error
	Delete(ctx context.Context, id, userID int64) error
	CountByUserID(ctx context.Context, userID int64) (int64, error)
	SetDefault(ctx context.Context, userID, id int64) error
}
