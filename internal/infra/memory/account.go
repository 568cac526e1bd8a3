package memory

import (
	"cmp"
	"context"
	"slices"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"
)

// デフォルトが先頭、あとはid順
func defaultFirst[T any](list []T, isDefault func(T) bool) []T {
	slices.SortStableFunc(list, func(a, b T) int {
		return cmp.Compare(boolRank(isDefault(a)), boolRank(isDefault(b)))
	})
	return list
}

func boolRank(b bool) int {
	if b {
		return 0
	}
	return 1
}

type addressRepo struct{ c conn }

func (r *addressRepo) Create(ctx context.Context, a model.Address) (model.Address, error) {
	err := r.c.do(func(t *tables) error {
		now := r.c.now()
		a.ID = t.nextID()
		if a.Country == "" {
			a.Country = "MY"
		}
		a.CreatedAt = now
		a.UpdatedAt = now
		t.addresses[a.ID] = a
		return nil
	})
	if err != nil {
		return model.Address{}, err
	}
	return a, nil
}

func (r *addressRepo) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	var out []model.Address
	err := r.c.do(func(t *tables) error {
		out = defaultFirst(
			sortedByID(t.addresses, func(a model.Address) bool { return a.UserID == userID }),
			func(a model.Address) bool { return a.IsDefault },
		)
		return nil
	})
	return out, err
}

func (r *addressRepo) FindByIDForUser(ctx context.Context, id, userID int64) (model.Address, error) {
	var out model.Address
	err := r.c.do(func(t *tables) error {
		a, ok := t.addresses[id]
		if !ok || a.UserID != userID {
			return repo.ErrNotFound
		}
		out = a
		return nil
	})
	return out, err
}

func (r *addressRepo) Update(ctx context.Context, a model.Address) error {
	return r.c.do(func(t *tables) error {
		cur, ok := t.addresses[a.ID]
		if !ok || cur.UserID != a.UserID {
			return repo.ErrNotFound
		}
		// is_defaultはSetDefaultでだけ変える
		a.IsDefault = cur.IsDefault
		a.CreatedAt = cur.CreatedAt
		a.UpdatedAt = r.c.now()
		t.addresses[a.ID] = a
		return nil
	})
}

func (r *addressRepo) Delete(ctx context.Context, id, userID int64) error {
	return r.c.do(func(t *tables) error {
		a, ok := t.addresses[id]
		if !ok || a.UserID != userID {
			return repo.ErrNotFound
		}
		delete(t.addresses, id)
		return nil
	})
}

func (r *addressRepo) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.c.do(func(t *tables) error {
		for _, a := range t.addresses {
			if a.UserID == userID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *addressRepo) SetDefault(ctx context.Context, userID, id int64) error {
	return r.c.do(func(t *tables) error {
		target, ok := t.addresses[id]
		if !ok || target.UserID != userID {
			return repo.ErrNotFound
		}
		for k, a := range t.addresses {
			if a.UserID == userID && a.IsDefault {
				a.IsDefault = false
				t.addresses[k] = a
			}
		}
		target = t.addresses[id]
		target.IsDefault = true
		t.addresses[id] = target
		return nil
	})
}

type paymentMethodRepo struct{ c conn }

func (r *paymentMethodRepo) Create(ctx context.Context, pm model.PaymentMethod) (model.PaymentMethod, error) {
	err := r.c.do(func(t *tables) error {
		now := r.c.now()
		pm.ID = t.nextID()
		pm.CreatedAt = now
		pm.UpdatedAt = now
		t.paymentMethods[pm.ID] = pm
		return nil
	})
	if err != nil {
		return model.PaymentMethod{}, err
	}
	return pm, nil
}

func (r *paymentMethodRepo) ListByUserID(ctx context.Context, userID int64) ([]model.PaymentMethod, error) {
	var out []model.PaymentMethod
	err := r.c.do(func(t *tables) error {
		out = defaultFirst(
			sortedByID(t.paymentMethods, func(pm model.PaymentMethod) bool { return pm.UserID == userID }),
			func(pm model.PaymentMethod) bool { return pm.IsDefault },
		)
		return nil
	})
	return out, err
}

func (r *paymentMethodRepo) FindByIDForUser(ctx context.Context, id, userID int64) (model.PaymentMethod, error) {
	var out model.PaymentMethod
	err := r.c.do(func(t *tables) error {
		pm, ok := t.paymentMethods[id]
		if !ok || pm.UserID != userID {
			return repo.ErrNotFound
		}
		out = pm
		return nil
	})
	return out, err
}

func (r *paymentMethodRepo) Update(ctx context.Context, pm model.PaymentMethod) error {
	return r.c.do(func(t *tables) error {
		cur, ok := t.paymentMethods[pm.ID]
		if !ok || cur.UserID != pm.UserID {
			return repo.ErrNotFound
		}
		cur.Provider = pm.Provider
		cur.LastFour = pm.LastFour
		cur.ExpiryMonth = pm.ExpiryMonth
		cur.ExpiryYear = pm.ExpiryYear
		cur.Metadata = pm.Metadata
		cur.UpdatedAt = r.c.now()
		t.paymentMethods[pm.ID] = cur
		return nil
	})
}

func (r *paymentMethodRepo) Delete(ctx context.Context, id, userID int64) error {
	return r.c.do(func(t *tables) error {
		pm, ok := t.paymentMethods[id]
		if !ok || pm.UserID != userID {
			return repo.ErrNotFound
		}
		delete(t.paymentMethods, id)
		return nil
	})
}

func (r *paymentMethodRepo) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.c.do(func(t *tables) error {
		for _, pm := range t.paymentMethods {
			if pm.UserID == userID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *paymentMethodRepo) SetDefault(ctx context.Context, userID, id int64) error {
	return r.c.do(func(t *tables) error {
		target, ok := t.paymentMethods[id]
		if !ok || target.UserID != userID {
			return repo.ErrNotFound
		}
		for k, pm := range t.paymentMethods {
			if pm.UserID == userID && pm.IsDefault {
				pm.IsDefault = false
				t.paymentMethods[k] = pm
			}
		}
		target = t.paymentMethods[id]
		target.IsDefault = true
		t.paymentMethods[id] = target
		return nil
	})
}

type wishlistRepo struct{ c conn }

func (r *wishlistRepo) ListByUserID(ctx context.Context, userID int64) ([]model.WishlistItem, error) {
	var out []model.WishlistItem
	err := r.c.do(func(t *tables) error {
		out = sortedByID(t.wishlist, func(w model.WishlistItem) bool { return w.UserID == userID })
		slices.Reverse(out)
		return nil
	})
	return out, err
}

func (r *wishlistRepo) Add(ctx context.Context, item model.WishlistItem) (model.WishlistItem, error) {
	err := r.c.do(func(t *tables) error {
		for _, w := range t.wishlist {
			if w.UserID == item.UserID && w.ProductID == item.ProductID {
				return repo.ErrConflict
			}
		}
		item.ID = t.nextID()
		item.CreatedAt = r.c.now()
		t.wishlist[item.ID] = item
		return nil
	})
	if err != nil {
		return model.WishlistItem{}, err
	}
	return item, nil
}

func (r *wishlistRepo) Remove(ctx context.Context, userID, productID int64) error {
	return r.c.do(func(t *tables) error {
		for id, w := range t.wishlist {
			if w.UserID == userID && w.ProductID == productID {
				delete(t.wishlist, id)
				return nil
			}
		}
		return repo.ErrNotFound
	})
}

func (r *wishlistRepo) Clear(ctx context.Context, userID int64) error {
	return r.c.do(func(t *tables) error {
		for id, w := range t.wishlist {
			if w.UserID == userID {
				delete(t.wishlist, id)
			}
		}
		return nil
	})
}

type auditLogRepo struct{ c conn }

func (r *auditLogRepo) Create(ctx context.Context, log model.AuditLog) error {
	return r.c.do(func(t *tables) error {
		log.ID = t.nextID()
		if log.CreatedAt.IsZero() {
			log.CreatedAt = r.c.now()
		}
		t.auditLogs[log.ID] = log
		return nil
	})
}

func (r *auditLogRepo) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	var (
		out   []model.AuditLog
		total int64
	)
	err := r.c.do(func(t *tables) error {
		all := sortedByID(t.auditLogs, func(l model.AuditLog) bool {
			switch {
			case f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID:
				return false
			case f.Action != nil && l.Action != *f.Action:
				return false
			case f.ResourceType != nil && l.ResourceType != *f.ResourceType:
				return false
			case f.ResourceID != nil && l.ResourceID != *f.ResourceID:
				return false
			case f.From != nil && l.CreatedAt.Before(*f.From):
				return false
			case f.To != nil && l.CreatedAt.After(*f.To):
				return false
			}
			return true
		})
		slices.Reverse(all)
		total = int64(len(all))
		out = paginate(all, f.Page, f.Limit)
		return nil
	})
	return out, total, err
}
