package repository

import (
	"context"

	"reweave/internal/domain/model"
)

type InventoryListFilter struct {
	Page      int
	Limit     int
	ProductID *int64

	// 実在庫がしきい値以下のものだけ
	LowStock bool
}

type InventoryRepository interface {
	// (product, variant) に一致する行。variantIDがnilなら商品の全行
	ListByProduct(ctx context.Context, productID int64, variantID *int64) ([]model.Inventory, error)

	// ListByProduct と同じ条件で SELECT ... FOR UPDATE。id順
	LockByProduct(ctx context.Context, productID int64, variantID *int64) ([]model.Inventory, error)

	// 差分で更新する（読み書きに分けない）
	Adjust(ctx context.Context, inventoryID int64, availableDelta, reservedDelta int64) error

	// 増減履歴
	CreateMovement(ctx context.Context, m model.InventoryMovement) error

	ListAdmin(ctx context.Context, f InventoryListFilter) ([]model.Inventory, int64, error)
	FindByID(ctx context.Context, inventoryID int64) (model.Inventory, error)
	Create(ctx context.Context, inv model.Inventory) (model.Inventory, error)

	// quantity_available と low_stock_threshold を更新
	Update(ctx context.Context, inv model.Inventory) error
}
