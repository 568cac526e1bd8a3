package usecase

import (
	"context"
	"errors"
	"net/http"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"
)

type WishlistEntry struct {
	model.WishlistItem
	Product *model.Product `json:"product,omitempty"`
}

type WishlistUsecase struct {
	tx repo.TransactionManager
}

func NewWishlistUsecase(tx repo.TransactionManager) *WishlistUsecase {
	return &WishlistUsecase{tx: tx}
}

// 削除済みの商品は product なしで返す
func (u *WishlistUsecase) List(ctx context.Context, userID int64) ([]WishlistEntry, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	out := []WishlistEntry{}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, err := r.Wishlist().ListByUserID(ctx, userID)
		if err != nil {
			return internalError(err)
		}

		ids := make([]int64, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		products, err := r.Products().ListByIDs(ctx, ids)
		if err != nil {
			return internalError(err)
		}
		byID := make(map[int64]model.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		for _, it := range items {
			e := WishlistEntry{WishlistItem: it}
			if p, ok := byID[it.ProductID]; ok && !p.DeletedAt.Valid {
				e.Product = &p
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *WishlistUsecase) Add(ctx context.Context, userID, productID int64) (model.WishlistItem, error) {
	if userID <= 0 {
		return model.WishlistItem{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.WishlistItem{}, NewHTTPError(http.StatusBadRequest, "Product ID is required")
	}

	var out model.WishlistItem
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Products().FindByID(ctx, productID); err != nil {
			return notFoundOr(err, "Product not found")
		}

		item, err := r.Wishlist().Add(ctx, model.WishlistItem{UserID: userID, ProductID: productID})
		if errors.Is(err, repo.ErrConflict) {
			return NewHTTPError(http.StatusConflict, "Product already in wishlist")
		}
		if err != nil {
			return internalError(err)
		}
		out = item
		return nil
	})
	if err != nil {
		return model.WishlistItem{}, err
	}
	return out, nil
}

func (u *WishlistUsecase) Remove(ctx context.Context, userID, productID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Wishlist().Remove(ctx, userID, productID); err != nil {
			return notFoundOr(err, "Product not in wishlist")
		}
		return nil
	})
}

func (u *WishlistUsecase) Clear(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Wishlist().Clear(ctx, userID); err != nil {
			return internalError(err)
		}
		return nil
	})
}
