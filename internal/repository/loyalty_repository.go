package repository

import (
	"context"

	"reweave/internal/domain/model"
)

type LoyaltyRepository interface {
	Create(ctx context.Context, t model.LoyaltyTransaction) error
	ListByUserID(ctx context.Context, userID int64, page, limit int) ([]model.LoyaltyTransaction, int64, error)
}
