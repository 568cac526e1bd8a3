package repository

import (
	"context"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

func (r *InventoryGormRepository) productScope(tx *gorm.DB, productID int64, variantID *int64) *gorm.DB {
	tx = tx.Where("product_id = ?", productID)
	if variantID != nil {
		tx = tx.Where("variant_id = ?", *variantID)
	}
	return tx.Order("id asc")
}

func (r *InventoryGormRepository) ListByProduct(ctx context.Context, productID int64, variantID *int64) ([]model.Inventory, error) {
	var rows []model.Inventory
	if err := r.productScope(r.db.WithContext(ctx), productID, variantID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// 予約・出荷の前に行ロック
func (r *InventoryGormRepository) LockByProduct(ctx context.Context, productID int64, variantID *int64) ([]model.Inventory, error) {
	var rows []model.Inventory
	tx := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	if err := r.productScope(tx, productID, variantID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// reserved = reserved + ? の形で更新
func (r *InventoryGormRepository) Adjust(ctx context.Context, inventoryID int64, availableDelta, reservedDelta int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("id = ?", inventoryID).
		Updates(map[string]interface{}{
			"quantity_available": gorm.Expr("quantity_available + ?", availableDelta),
			"quantity_reserved":  gorm.Expr("quantity_reserved + ?", reservedDelta),
		})
	return affected(res)
}

// 増減履歴作成
func (r *InventoryGormRepository) CreateMovement(ctx context.Context, m model.InventoryMovement) error {
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *InventoryGormRepository) ListAdmin(ctx context.Context, f repo.InventoryListFilter) ([]model.Inventory, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Inventory{})

	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.LowStock {
		q = q.Where("quantity_available - quantity_reserved - quantity_committed <= low_stock_threshold")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Inventory{}, 0, err
	}

	var rows []model.Inventory
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id asc").Limit(f.Limit).Offset(offset).Find(&rows).Error; err != nil {
		return []model.Inventory{}, 0, err
	}
	return rows, total, nil
}

func (r *InventoryGormRepository) FindByID(ctx context.Context, inventoryID int64) (model.Inventory, error) {
	var inv model.Inventory
	if err := r.db.WithContext(ctx).First(&inv, inventoryID).Error; err != nil {
		return model.Inventory{}, mapError(err)
	}
	return inv, nil
}

func (r *InventoryGormRepository) Create(ctx context.Context, inv model.Inventory) (model.Inventory, error) {
	if err := r.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return model.Inventory{}, mapError(err)
	}
	return inv, nil
}

func (r *InventoryGormRepository) Update(ctx context.Context, inv model.Inventory) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("id = ?", inv.ID).
		Updates(map[string]interface{}{
			"quantity_available":  inv.QuantityAvailable,
			"low_stock_threshold": inv.LowStockThreshold,
		})
	return affected(res)
}
