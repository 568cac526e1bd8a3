package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"go.uber.org/zap"
)

type Availability struct {
	Available bool  `json:"available"`
	Quantity  int64 `json:"available_quantity"`
}

// 在庫の確認・予約・戻し・出荷と、管理画面の在庫操作
type InventoryUsecase struct {
	tx        repo.TransactionManager
	inventory repo.InventoryRepository
	products  repo.ProductRepository
	log       *zap.Logger
}

func NewInventoryUsecase(tx repo.TransactionManager, inventory repo.InventoryRepository, products repo.ProductRepository, log *zap.Logger) *InventoryUsecase {
	return &InventoryUsecase{tx: tx, inventory: inventory, products: products, log: log}
}

// CheckAvailability は一致する全行の実在庫を合計して判定する。
// 読めなかったときは「在庫なし」扱い。
func (u *InventoryUsecase) CheckAvailability(ctx context.Context, productID int64, variantID *int64, qty int64) Availability {
	return checkAvailability(ctx, u.inventory, u.log, productID, variantID, qty)
}

// ProductAvailability は公開APIの在庫確認。非公開の商品や他商品のバリエーションは404。
func (u *InventoryUsecase) ProductAvailability(ctx context.Context, productID int64, variantID *int64, qty int64) (Availability, error) {
	if productID <= 0 {
		return Availability{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if qty < 1 {
		return Availability{}, NewHTTPError(http.StatusBadRequest, "Quantity must be a positive integer")
	}

	p, err := u.products.FindByID(ctx, productID)
	if err != nil {
		return Availability{}, notFoundOr(err, "Product not found")
	}
	if !p.IsActive() {
		return Availability{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}
	if variantID != nil {
		if _, err := u.products.FindVariant(ctx, productID, *variantID); err != nil {
			return Availability{}, notFoundOr(err, "Variant not found")
		}
	}

	return u.CheckAvailability(ctx, productID, variantID, qty), nil
}

func checkAvailability(ctx context.Context, inv repo.InventoryRepository, log *zap.Logger, productID int64, variantID *int64, qty int64) Availability {
	rows, err := inv.ListByProduct(ctx, productID, variantID)
	if err != nil {
		log.Warn("inventory check failed, treating as unavailable",
			zap.Int64("product_id", productID),
			zap.Error(err))
		return Availability{Available: false, Quantity: 0}
	}

	sum := max(model.SumEffective(rows), 0)
	return Availability{Available: sum >= qty, Quantity: sum}
}

// 予約・戻し・出荷の参照先
type stockRef struct {
	OrderID int64
	Actor   *int64
}

func (s stockRef) movement(inventoryID int64, typ model.MovementType, qty int64, reason string) model.InventoryMovement {
	return model.InventoryMovement{
		InventoryID:   inventoryID,
		Type:          typ,
		Quantity:      qty,
		ReferenceType: "order",
		ReferenceID:   &s.OrderID,
		ActorUserID:   s.Actor,
		Reason:        reason,
	}
}

// reserveStock はロックした行で在庫を確認し、id順に reserved を積む。
// 足りなければ何も書かずにInsufficientInventoryError。
func reserveStock(ctx context.Context, r repo.TxRepos, ref stockRef, productID int64, variantID *int64, qty int64) error {
	rows, err := r.Inventory().LockByProduct(ctx, productID, variantID)
	if err != nil {
		return internalError(err)
	}

	available := max(model.SumEffective(rows), 0)
	if available < qty {
		return &InsufficientInventoryError{ProductID: productID, VariantID: variantID, Requested: qty, Available: available}
	}

	remaining := qty
	for _, row := range rows {
		if remaining == 0 {
			break
		}
		take := min(row.Effective(), remaining)
		if take <= 0 {
			continue
		}
		if err := r.Inventory().Adjust(ctx, row.ID, 0, take); err != nil {
			return internalError(err)
		}
		if err := r.Inventory().CreateMovement(ctx, ref.movement(row.ID, model.MovementReserve, take, "order placed")); err != nil {
			return internalError(err)
		}
		remaining -= take
	}
	return nil
}

// releaseStock は予約分を戻す（キャンセル）。
func releaseStock(ctx context.Context, r repo.TxRepos, ref stockRef, productID int64, variantID *int64, qty int64, reason string) error {
	return drainReserved(ctx, r, ref, productID, variantID, qty, func(row model.Inventory, take int64) error {
		if err := r.Inventory().Adjust(ctx, row.ID, 0, -take); err != nil {
			return err
		}
		return r.Inventory().CreateMovement(ctx, ref.movement(row.ID, model.MovementRelease, take, reason))
	})
}

// shipStock は予約分を出荷済みにする（available と reserved を両方減らす）。
func shipStock(ctx context.Context, r repo.TxRepos, ref stockRef, productID int64, variantID *int64, qty int64) error {
	return drainReserved(ctx, r, ref, productID, variantID, qty, func(row model.Inventory, take int64) error {
		if err := r.Inventory().Adjust(ctx, row.ID, -take, -take); err != nil {
			return err
		}
		return r.Inventory().CreateMovement(ctx, ref.movement(row.ID, model.MovementShip, take, "order shipped"))
	})
}

// reservedを持っている行からid順に取り崩す
func drainReserved(ctx context.Context, r repo.TxRepos, ref stockRef, productID int64, variantID *int64, qty int64, apply func(row model.Inventory, take int64) error) error {
	rows, err := r.Inventory().LockByProduct(ctx, productID, variantID)
	if err != nil {
		return internalError(err)
	}

	remaining := qty
	for _, row := range rows {
		if remaining == 0 {
			break
		}
		take := min(row.QuantityReserved, remaining)
		if take <= 0 {
			continue
		}
		if err := apply(row, take); err != nil {
			return internalError(err)
		}
		remaining -= take
	}
	return nil
}

// 管理画面の在庫1行
type InventoryView struct {
	model.Inventory
	Stock          int64 `json:"stock"`
	AvailableStock int64 `json:"available_stock"`
	LowStock       bool  `json:"low_stock"`
}

func toInventoryView(inv model.Inventory) InventoryView {
	return InventoryView{
		Inventory:      inv,
		Stock:          inv.QuantityAvailable,
		AvailableStock: inv.Effective(),
		LowStock:       inv.Effective() <= inv.LowStockThreshold,
	}
}

type InventoryListOutput struct {
	Items []InventoryView `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *InventoryUsecase) AdminList(ctx context.Context, f repo.InventoryListFilter) (InventoryListOutput, error) {
	if f.Page < 1 {
		return InventoryListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return InventoryListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	rows, total, err := u.inventory.ListAdmin(ctx, f)
	if err != nil {
		return InventoryListOutput{}, internalError(err)
	}

	items := make([]InventoryView, 0, len(rows))
	for _, row := range rows {
		items = append(items, toInventoryView(row))
	}
	return InventoryListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

type AdminCreateInventoryInput struct {
	ProductID         int64  `json:"product_id"`
	VariantID         *int64 `json:"variant_id"`
	Location          string `json:"location"`
	Stock             int64  `json:"stock"`
	LowStockThreshold *int64 `json:"low_stock_threshold"`
}

func (u *InventoryUsecase) AdminCreate(ctx context.Context, adminUserID int64, in AdminCreateInventoryInput) (InventoryView, error) {
	if in.ProductID <= 0 {
		return InventoryView{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Stock < 0 {
		return InventoryView{}, NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	threshold := int64(5)
	if in.LowStockThreshold != nil {
		if *in.LowStockThreshold < 0 {
			return InventoryView{}, NewHTTPError(http.StatusBadRequest, "low_stock_threshold must be >= 0")
		}
		threshold = *in.LowStockThreshold
	}
	location := strings.TrimSpace(in.Location)
	if location == "" {
		location = "main"
	}

	var out InventoryView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Products().FindByID(ctx, in.ProductID); err != nil {
			return notFoundOr(err, "product not found")
		}
		if in.VariantID != nil {
			if _, err := r.Products().FindVariant(ctx, in.ProductID, *in.VariantID); err != nil {
				return notFoundOr(err, "variant not found")
			}
		}

		inv, err := r.Inventory().Create(ctx, model.Inventory{
			ProductID:         in.ProductID,
			VariantID:         in.VariantID,
			Location:          location,
			QuantityAvailable: in.Stock,
			LowStockThreshold: threshold,
		})
		if err != nil {
			return internalError(err)
		}

		if in.Stock > 0 {
			if err := r.Inventory().CreateMovement(ctx, model.InventoryMovement{
				InventoryID:   inv.ID,
				Type:          model.MovementAdjust,
				Quantity:      in.Stock,
				ReferenceType: "admin",
				ActorUserID:   &adminUserID,
				Reason:        "initial stock",
			}); err != nil {
				return internalError(err)
			}
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceInventory,
			ResourceID:   inv.ID,
			BeforeJSON:   "{}",
			AfterJSON:    stockJSON(inv),
		}); err != nil {
			return internalError(err)
		}

		out = toInventoryView(inv)
		return nil
	})
	if err != nil {
		return InventoryView{}, err
	}
	return out, nil
}

// PATCH /admin/inventory/:id の入力。nilは変更しない
type AdminUpdateInventoryInput struct {
	Stock             *int64 `json:"stock"`
	LowStockThreshold *int64 `json:"low_stock_threshold"`
	Reason            string `json:"reason"`
}

func (u *InventoryUsecase) AdminUpdate(ctx context.Context, adminUserID int64, inventoryID int64, in AdminUpdateInventoryInput) (InventoryView, error) {
	if inventoryID <= 0 {
		return InventoryView{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Stock == nil && in.LowStockThreshold == nil {
		return InventoryView{}, NewHTTPError(http.StatusBadRequest, "nothing to update")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return InventoryView{}, NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	if in.LowStockThreshold != nil && *in.LowStockThreshold < 0 {
		return InventoryView{}, NewHTTPError(http.StatusBadRequest, "low_stock_threshold must be >= 0")
	}
	reason := strings.TrimSpace(in.Reason)
	if in.Stock != nil && reason == "" {
		return InventoryView{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}

	var out InventoryView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Inventory().FindByID(ctx, inventoryID)
		if err != nil {
			return notFoundOr(err, "not found")
		}

		after := before
		if in.Stock != nil {
			// 予約済みより下げると実在庫がマイナスになる
			if *in.Stock < before.QuantityReserved+before.QuantityCommitted {
				return NewHTTPError(http.StatusBadRequest, "stock cannot be below reserved quantity")
			}
			after.QuantityAvailable = *in.Stock
		}
		if in.LowStockThreshold != nil {
			after.LowStockThreshold = *in.LowStockThreshold
		}

		if err := r.Inventory().Update(ctx, after); err != nil {
			return notFoundOr(err, "not found")
		}

		if delta := after.QuantityAvailable - before.QuantityAvailable; delta != 0 {
			if err := r.Inventory().CreateMovement(ctx, model.InventoryMovement{
				InventoryID:   inventoryID,
				Type:          model.MovementAdjust,
				Quantity:      delta,
				ReferenceType: "admin",
				ActorUserID:   &adminUserID,
				Reason:        reason,
			}); err != nil {
				return internalError(err)
			}
		}

		//監査ログを作成（在庫更新）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceInventory,
			ResourceID:   inventoryID,
			BeforeJSON:   stockJSON(before),
			AfterJSON:    stockJSON(after),
		}); err != nil {
			return internalError(err)
		}

		out = toInventoryView(after)
		return nil
	})
	if err != nil {
		return InventoryView{}, err
	}
	return out, nil
}

func stockJSON(inv model.Inventory) string {
	return mustJSON(map[string]int64{
		"stock":               inv.QuantityAvailable,
		"reserved":            inv.QuantityReserved,
		"committed":           inv.QuantityCommitted,
		"low_stock_threshold": inv.LowStockThreshold,
	})
}

// 監査ログ用。失敗しない値しか渡さない
func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
