package usecase

import (
	"context"
	"errors"
	"net/http"

	"reweave/internal/domain/model"
	"reweave/internal/domain/pricing"
	repo "reweave/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartUsecase は /cart の業務ロジックです。
// 変更系は全部1トランザクションで、最後に必ず金額を計算し直す。
type CartUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

func NewCartUsecase(tx repo.TransactionManager, log *zap.Logger) *CartUsecase {
	return &CartUsecase{tx: tx, log: log}
}

type CartItemView struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	VariantID   *int64          `json:"variant_id"`
	Name        string          `json:"name"`
	VariantName string          `json:"variant_name,omitempty"`
	Image       string          `json:"image,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type CartView struct {
	ID        int64            `json:"id"`
	UserID    *int64           `json:"user_id"`
	SessionID *string          `json:"session_id"`
	Status    model.CartStatus `json:"status"`
	Items     []CartItemView   `json:"items"`
	ItemCount int64            `json:"item_count"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
	Tax       decimal.Decimal  `json:"tax"`
	Shipping  decimal.Decimal  `json:"shipping"`
	Total     decimal.Decimal  `json:"total"`
}

type AddCartItemInput struct {
	ProductID int64
	VariantID *int64
	Quantity  int64
}

// ResolveOwner はユーザーIDを優先する。どちらも無ければ400。
func ResolveOwner(userID int64, sessionID string) (model.CartOwner, error) {
	owner := model.CartOwner{UserID: userID, SessionID: sessionID}
	if !owner.Valid() {
		return model.CartOwner{}, NewHTTPError(http.StatusBadRequest, "Session ID or User ID required")
	}
	return owner, nil
}

// NewSessionID はゲスト用のセッションIDを払い出す
func (u *CartUsecase) NewSessionID() string {
	return uuid.NewString()
}

// GetCart はカート取得（無ければACTIVEを作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, owner model.CartOwner) (CartView, error) {
	var out CartView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateActive(ctx, owner)
		if err != nil {
			return internalError(err)
		}
		out, err = u.refresh(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartView{}, err
	}
	return out, nil
}

// AddItem はカートに追加（同じ商品・バリエーションは数量加算）。
// 在庫は「既存 + 追加」の数量で確認する。
func (u *CartUsecase) AddItem(ctx context.Context, owner model.CartOwner, in AddCartItemInput) (CartView, error) {
	if in.ProductID <= 0 {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "Product ID is required")
	}
	if in.Quantity < 1 {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "Quantity must be a positive integer")
	}

	var out CartView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 商品チェック（公開のみ）
		p, err := r.Products().FindByID(ctx, in.ProductID)
		if err != nil {
			return notFoundOr(err, "Product not found")
		}
		if !p.IsActive() {
			return NewHTTPError(http.StatusNotFound, "Product not found")
		}

		var variant *model.ProductVariant
		if in.VariantID != nil {
			v, err := r.Products().FindVariant(ctx, in.ProductID, *in.VariantID)
			if err != nil {
				return notFoundOr(err, "Variant not found")
			}
			variant = &v
		}

		price := model.UnitPrice(p, variant)
		if !price.IsPositive() {
			return NewHTTPError(http.StatusBadRequest, "Product price is not available")
		}

		// ACTIVEカート取得（無ければ作成）
		cart, err := r.Carts().GetOrCreateActive(ctx, owner)
		if err != nil {
			return internalError(err)
		}

		existing, err := r.CartItems().FindByCartAndProduct(ctx, cart.ID, in.ProductID, in.VariantID)
		found := err == nil
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return internalError(err)
		}

		newQty := in.Quantity
		if found {
			newQty += existing.Quantity
		}

		avail := checkAvailability(ctx, r.Inventory(), u.log, in.ProductID, in.VariantID, newQty)
		if !avail.Available {
			return &InsufficientInventoryError{ProductID: in.ProductID, VariantID: in.VariantID, Requested: newQty, Available: avail.Quantity}
		}

		if found {
			if err := r.CartItems().UpdateQuantity(ctx, existing.ID, newQty); err != nil {
				return internalError(err)
			}
		} else {
			// priceは追加時点の価格
			if _, err := r.CartItems().Create(ctx, model.CartItem{
				CartID:    cart.ID,
				ProductID: in.ProductID,
				VariantID: in.VariantID,
				Quantity:  in.Quantity,
				Price:     price,
			}); err != nil {
				return internalError(err)
			}
		}

		out, err = u.refresh(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartView{}, err
	}
	return out, nil
}

// 明細を取り出して、持ち主のACTIVEカートのものか確かめる。違えば404
func ownedItem(ctx context.Context, r repo.TxRepos, owner model.CartOwner, itemID int64) (model.CartItem, model.Cart, error) {
	item, err := r.CartItems().FindByID(ctx, itemID)
	if err != nil {
		return model.CartItem{}, model.Cart{}, notFoundOr(err, "Cart item not found")
	}
	cart, err := r.Carts().FindByID(ctx, item.CartID)
	if err != nil {
		return model.CartItem{}, model.Cart{}, notFoundOr(err, "Cart item not found")
	}
	if !cart.OwnedBy(owner) || cart.Status != model.CartStatusActive {
		return model.CartItem{}, model.Cart{}, NewHTTPError(http.StatusNotFound, "Cart item not found")
	}
	return item, cart, nil
}

// 数量変更（所有チェック＋在庫チェック）。
func (u *CartUsecase) UpdateItemQuantity(ctx context.Context, owner model.CartOwner, itemID int64, qty int64) (CartView, error) {
	if itemID <= 0 {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if qty < 1 {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "Quantity must be a positive integer")
	}

	var out CartView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, cart, err := ownedItem(ctx, r, owner, itemID)
		if err != nil {
			return err
		}

		avail := checkAvailability(ctx, r.Inventory(), u.log, item.ProductID, item.VariantID, qty)
		if !avail.Available {
			return &InsufficientInventoryError{ProductID: item.ProductID, VariantID: item.VariantID, Requested: qty, Available: avail.Quantity}
		}

		if err := r.CartItems().UpdateQuantity(ctx, item.ID, qty); err != nil {
			return notFoundOr(err, "Cart item not found")
		}

		out, err = u.refresh(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartView{}, err
	}
	return out, nil
}

// 明細削除
func (u *CartUsecase) RemoveItem(ctx context.Context, owner model.CartOwner, itemID int64) (CartView, error) {
	if itemID <= 0 {
		return CartView{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out CartView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, cart, err := ownedItem(ctx, r, owner, itemID)
		if err != nil {
			return err
		}
		if err := r.CartItems().DeleteByID(ctx, item.ID); err != nil {
			return notFoundOr(err, "Cart item not found")
		}
		out, err = u.refresh(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartView{}, err
	}
	return out, nil
}

// Clear は明細を全部消して金額を0に戻す。
func (u *CartUsecase) Clear(ctx context.Context, owner model.CartOwner) (CartView, error) {
	var out CartView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindActiveByOwner(ctx, owner)
		if err != nil {
			return notFoundOr(err, "Cart not found")
		}
		if err := r.CartItems().DeleteByCartID(ctx, cart.ID); err != nil {
			return internalError(err)
		}
		out, err = u.refresh(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartView{}, err
	}
	return out, nil
}

type CartIssue struct {
	ItemID    int64  `json:"item_id"`
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id"`
	Requested int64  `json:"requested_quantity"`
	Available int64  `json:"available_quantity"`
	Reason    string `json:"reason"`
}

type CartValidation struct {
	Valid  bool        `json:"valid"`
	Issues []CartIssue `json:"issues"`
}

// ValidateCart はチェックアウト前に明細ごとの在庫と公開状態を確認する。書き込みはしない。
func (u *CartUsecase) ValidateCart(ctx context.Context, owner model.CartOwner) (CartValidation, error) {
	out := CartValidation{Valid: true, Issues: []CartIssue{}}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindActiveByOwner(ctx, owner)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return internalError(err)
		}

		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return internalError(err)
		}

		for _, it := range items {
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				return internalError(err)
			}
			if err != nil || !p.IsActive() {
				out.Issues = append(out.Issues, CartIssue{
					ItemID: it.ID, ProductID: it.ProductID, VariantID: it.VariantID,
					Requested: it.Quantity, Reason: "product_unavailable",
				})
				continue
			}

			avail := checkAvailability(ctx, r.Inventory(), u.log, it.ProductID, it.VariantID, it.Quantity)
			if !avail.Available {
				out.Issues = append(out.Issues, CartIssue{
					ItemID: it.ID, ProductID: it.ProductID, VariantID: it.VariantID,
					Requested: it.Quantity, Available: avail.Quantity, Reason: "insufficient_inventory",
				})
			}
		}
		return nil
	})
	if err != nil {
		return CartValidation{}, err
	}
	out.Valid = len(out.Issues) == 0
	return out, nil
}

// MergeGuestCart はログイン時にゲストカートをユーザーのカートへ寄せる。
// 呼び出し側はエラーをログに出して無視する（ログインは止めない）。
func (u *CartUsecase) MergeGuestCart(ctx context.Context, sessionID string, userID int64) error {
	if sessionID == "" || userID <= 0 {
		return nil
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		guest, err := r.Carts().FindActiveByOwner(ctx, model.CartOwner{SessionID: sessionID})
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		guestItems, err := r.CartItems().ListByCartID(ctx, guest.ID)
		if err != nil {
			return err
		}
		if len(guestItems) == 0 {
			return nil
		}

		userCart, err := r.Carts().FindActiveByOwner(ctx, model.CartOwner{UserID: userID})
		if errors.Is(err, repo.ErrNotFound) {
			// ユーザーのカートが無ければ持ち主を付け替えるだけ
			return r.Carts().Reassign(ctx, guest.ID, userID)
		}
		if err != nil {
			return err
		}

		for _, gi := range guestItems {
			existing, err := r.CartItems().FindByCartAndProduct(ctx, userCart.ID, gi.ProductID, gi.VariantID)
			switch {
			case err == nil:
				if err := r.CartItems().UpdateQuantity(ctx, existing.ID, existing.Quantity+gi.Quantity); err != nil {
					return err
				}
			case errors.Is(err, repo.ErrNotFound):
				if err := r.CartItems().MoveToCart(ctx, gi.ID, userCart.ID); err != nil {
					return err
				}
			default:
				return err
			}
		}

		if err := r.Carts().Delete(ctx, guest.ID); err != nil {
			return err
		}

		_, _, err = recalculate(ctx, r, userCart)
		return err
	})
}

// recalculate は明細から金額を出し直し、保存値と違えば書き戻す。
func recalculate(ctx context.Context, r repo.TxRepos, cart model.Cart) (model.Cart, []model.CartItem, error) {
	items, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return model.Cart{}, nil, err
	}

	t := pricing.TotalsForItems(items)
	if !t.Equal(pricing.FromCart(cart)) {
		cart.Subtotal, cart.Tax, cart.Shipping, cart.Total = t.Subtotal, t.Tax, t.Shipping, t.Total
		if err := r.Carts().UpdateTotals(ctx, cart); err != nil {
			return model.Cart{}, nil, err
		}
	}
	return cart, items, nil
}

// 金額を計算し直してレスポンスを組み立てる
func (u *CartUsecase) refresh(ctx context.Context, r repo.TxRepos, cart model.Cart) (CartView, error) {
	cart, items, err := recalculate(ctx, r, cart)
	if err != nil {
		return CartView{}, internalError(err)
	}
	return buildCartView(ctx, r, cart, items)
}

func buildCartView(ctx context.Context, r repo.TxRepos, cart model.Cart, items []model.CartItem) (CartView, error) {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := r.Products().ListByIDs(ctx, ids)
	if err != nil {
		return CartView{}, internalError(err)
	}
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	view := CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		SessionID: cart.SessionID,
		Status:    cart.Status,
		Items:     make([]CartItemView, 0, len(items)),
		Subtotal:  cart.Subtotal,
		Tax:       cart.Tax,
		Shipping:  cart.Shipping,
		Total:     cart.Total,
	}

	for _, it := range items {
		p := byID[it.ProductID]
		iv := CartItemView{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      p.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			LineTotal: it.Price.Mul(decimal.NewFromInt(it.Quantity)),
		}
		if len(p.Images) > 0 {
			iv.Image = p.Images[0]
		}
		if it.VariantID != nil {
			if v, err := r.Products().FindVariant(ctx, it.ProductID, *it.VariantID); err == nil {
				iv.VariantName = v.Name
			}
		}
		view.Items = append(view.Items, iv)
		view.ItemCount += it.Quantity
	}
	return view, nil
}
