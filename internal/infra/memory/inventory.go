package memory

import (
	"context"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"
)

type inventoryRepo struct{ c conn }

func matchInventory(productID int64, variantID *int64) func(model.Inventory) bool {
	return func(inv model.Inventory) bool {
		if inv.ProductID != productID {
			return false
		}
		return variantID == nil || (inv.VariantID != nil && *inv.VariantID == *variantID)
	}
}

func (r *inventoryRepo) ListByProduct(ctx context.Context, productID int64, variantID *int64) ([]model.Inventory, error) {
	var out []model.Inventory
	err := r.c.do(func(t *tables) error {
		out = sortedByID(t.inventory, matchInventory(productID, variantID))
		return nil
	})
	return out, err
}

// Storeのmutexがtx全体を守るので行ロックは不要
func (r *inventoryRepo) LockByProduct(ctx context.Context, productID int64, variantID *int64) ([]model.Inventory, error) {
	return r.ListByProduct(ctx, productID, variantID)
}

func (r *inventoryRepo) Adjust(ctx context.Context, inventoryID int64, availableDelta, reservedDelta int64) error {
	return r.c.do(func(t *tables) error {
		inv, ok := t.inventory[inventoryID]
		if !ok {
			return repo.ErrNotFound
		}
		inv.QuantityAvailable += availableDelta
		inv.QuantityReserved += reservedDelta
		inv.UpdatedAt = r.c.now()
		t.inventory[inventoryID] = inv
		return nil
	})
}

func (r *inventoryRepo) CreateMovement(ctx context.Context, m model.InventoryMovement) error {
	return r.c.do(func(t *tables) error {
		m.ID = t.nextID()
		m.CreatedAt = r.c.now()
		t.movements = append(t.movements, m)
		return nil
	})
}

func (r *inventoryRepo) ListAdmin(ctx context.Context, f repo.InventoryListFilter) ([]model.Inventory, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	var out []model.Inventory
	var total int64
	err := r.c.do(func(t *tables) error {
		all := sortedByID(t.inventory, func(inv model.Inventory) bool {
			if f.ProductID != nil && inv.ProductID != *f.ProductID {
				return false
			}
			if f.LowStock && inv.Effective() > inv.LowStockThreshold {
				return false
			}
			return true
		})
		total = int64(len(all))
		out = paginate(all, f.Page, f.Limit)
		return nil
	})
	return out, total, err
}

func (r *inventoryRepo) FindByID(ctx context.Context, inventoryID int64) (model.Inventory, error) {
	var out model.Inventory
	err := r.c.do(func(t *tables) error {
		inv, ok := t.inventory[inventoryID]
		if !ok {
			return repo.ErrNotFound
		}
		out = inv
		return nil
	})
	return out, err
}

func (r *inventoryRepo) Create(ctx context.Context, inv model.Inventory) (model.Inventory, error) {
	err := r.c.do(func(t *tables) error {
		now := r.c.now()
		inv.ID = t.nextID()
		if inv.Location == "" {
			inv.Location = "main"
		}
		inv.CreatedAt = now
		inv.UpdatedAt = now
		t.inventory[inv.ID] = inv
		return nil
	})
	if err != nil {
		return model.Inventory{}, err
	}
	return inv, nil
}

func (r *inventoryRepo) Update(ctx context.Context, inv model.Inventory) error {
	return r.c.do(func(t *tables) error {
		cur, ok := t.inventory[inv.ID]
		if !ok {
			return repo.ErrNotFound
		}
		cur.QuantityAvailable = inv.QuantityAvailable
		cur.LowStockThreshold = inv.LowStockThreshold
		cur.UpdatedAt = r.c.now()
		t.inventory[inv.ID] = cur
		return nil
	})
}
