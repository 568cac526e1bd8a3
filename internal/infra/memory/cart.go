package memory

import (
	"context"
	"slices"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"github.com/shopspring/decimal"
)

type cartRepo struct{ c conn }

func activeCart(t *tables, owner model.CartOwner) (model.Cart, bool) {
	var found model.Cart
	ok := false
	for _, cart := range t.carts {
		if cart.Status != model.CartStatusActive {
			continue
		}
		if owner.IsUser() {
			if cart.UserID == nil || *cart.UserID != owner.UserID {
				continue
			}
		} else if cart.UserID != nil || cart.SessionID == nil || *cart.SessionID != owner.SessionID {
			continue
		}
		// 一番新しいもの
		if !ok || cart.ID > found.ID {
			found, ok = cart, true
		}
	}
	return found, ok
}

func (r *cartRepo) FindActiveByOwner(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	var out model.Cart
	err := r.c.do(func(t *tables) error {
		cart, ok := activeCart(t, owner)
		if !ok {
			return repo.ErrNotFound
		}
		out = cart
		return nil
	})
	return out, err
}

func (r *cartRepo) GetOrCreateActive(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	if !owner.Valid() {
		return model.Cart{}, repo.ErrNotFound
	}
	var out model.Cart
	err := r.c.do(func(t *tables) error {
		if cart, ok := activeCart(t, owner); ok {
			out = cart
			return nil
		}
		now := r.c.now()
		cart := model.Cart{
			ID:        t.nextID(),
			Status:    model.CartStatusActive,
			Subtotal:  decimal.Zero,
			Tax:       decimal.Zero,
			Shipping:  decimal.Zero,
			Total:     decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if owner.IsUser() {
			cart.UserID = ptr(owner.UserID)
		} else {
			cart.SessionID = ptr(owner.SessionID)
		}
		t.carts[cart.ID] = cart
		out = cart
		return nil
	})
	return out, err
}

func (r *cartRepo) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	var out model.Cart
	err := r.c.do(func(t *tables) error {
		cart, ok := t.carts[cartID]
		if !ok {
			return repo.ErrNotFound
		}
		out = cart
		return nil
	})
	return out, err
}

func (r *cartRepo) update(cartID int64, fn func(c *model.Cart)) error {
	return r.c.do(func(t *tables) error {
		cart, ok := t.carts[cartID]
		if !ok {
			return repo.ErrNotFound
		}
		fn(&cart)
		cart.UpdatedAt = r.c.now()
		t.carts[cartID] = cart
		return nil
	})
}

func (r *cartRepo) UpdateTotals(ctx context.Context, cart model.Cart) error {
	return r.update(cart.ID, func(c *model.Cart) {
		c.Subtotal = cart.Subtotal
		c.Tax = cart.Tax
		c.Shipping = cart.Shipping
		c.Total = cart.Total
	})
}

func (r *cartRepo) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	return r.update(cartID, func(c *model.Cart) { c.Status = status })
}

func (r *cartRepo) Reassign(ctx context.Context, cartID int64, userID int64) error {
	return r.update(cartID, func(c *model.Cart) {
		c.UserID = ptr(userID)
		c.SessionID = nil
	})
}

func (r *cartRepo) Delete(ctx context.Context, cartID int64) error {
	return r.c.do(func(t *tables) error {
		if _, ok := t.carts[cartID]; !ok {
			return repo.ErrNotFound
		}
		for id, it := range t.cartItems {
			if it.CartID == cartID {
				delete(t.cartItems, id)
			}
		}
		delete(t.carts, cartID)
		return nil
	})
}

type cartItemRepo struct{ c conn }

func (r *cartItemRepo) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var out []model.CartItem
	err := r.c.do(func(t *tables) error {
		out = sortedByID(t.cartItems, func(it model.CartItem) bool { return it.CartID == cartID })
		return nil
	})
	return out, err
}

func (r *cartItemRepo) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	var out model.CartItem
	err := r.c.do(func(t *tables) error {
		it, ok := t.cartItems[cartItemID]
		if !ok {
			return repo.ErrNotFound
		}
		out = it
		return nil
	})
	return out, err
}

func (r *cartItemRepo) FindByCartAndProduct(ctx context.Context, cartID, productID int64, variantID *int64) (model.CartItem, error) {
	var out model.CartItem
	err := r.c.do(func(t *tables) error {
		items := sortedByID(t.cartItems, func(it model.CartItem) bool {
			return it.CartID == cartID && it.SameLine(productID, variantID)
		})
		if len(items) == 0 {
			return repo.ErrNotFound
		}
		out = items[0]
		return nil
	})
	return out, err
}

func (r *cartItemRepo) Create(ctx context.Context, item model.CartItem) (model.CartItem, error) {
	err := r.c.do(func(t *tables) error {
		// (cart, product, variant) は一意
		if slices.ContainsFunc(sortedByID(t.cartItems, nil), func(it model.CartItem) bool {
			return it.CartID == item.CartID && it.SameLine(item.ProductID, item.VariantID)
		}) {
			return repo.ErrConflict
		}
		now := r.c.now()
		item.ID = t.nextID()
		item.CreatedAt = now
		item.UpdatedAt = now
		t.cartItems[item.ID] = item
		return nil
	})
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

func (r *cartItemRepo) update(id int64, fn func(it *model.CartItem)) error {
	return r.c.do(func(t *tables) error {
		it, ok := t.cartItems[id]
		if !ok {
			return repo.ErrNotFound
		}
		fn(&it)
		it.UpdatedAt = r.c.now()
		t.cartItems[id] = it
		return nil
	})
}

func (r *cartItemRepo) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	return r.update(cartItemID, func(it *model.CartItem) { it.Quantity = qty })
}

func (r *cartItemRepo) MoveToCart(ctx context.Context, cartItemID int64, cartID int64) error {
	return r.update(cartItemID, func(it *model.CartItem) { it.CartID = cartID })
}

func (r *cartItemRepo) DeleteByID(ctx context.Context, cartItemID int64) error {
	return r.c.do(func(t *tables) error {
		if _, ok := t.cartItems[cartItemID]; !ok {
			return repo.ErrNotFound
		}
		delete(t.cartItems, cartItemID)
		return nil
	})
}

func (r *cartItemRepo) DeleteByCartID(ctx context.Context, cartID int64) error {
	return r.c.do(func(t *tables) error {
		for id, it := range t.cartItems {
			if it.CartID == cartID {
				delete(t.cartItems, id)
			}
		}
		return nil
	})
}
