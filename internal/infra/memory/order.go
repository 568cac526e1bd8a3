package memory

import (
	"context"
	"slices"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"
)

type orderRepo struct{ c conn }

func (r *orderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var out model.Order
	err := r.c.do(func(t *tables) error {
		o, ok := t.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		out = o
		return nil
	})
	return out, err
}

func (r *orderRepo) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return r.FindByID(ctx, orderID)
}

// 新しい順
func newestFirst(list []model.Order) []model.Order {
	slices.Reverse(list)
	return list
}

func (r *orderRepo) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	var out []model.Order
	var total int64
	err := r.c.do(func(t *tables) error {
		all := newestFirst(sortedByID(t.orders, func(o model.Order) bool { return o.UserID == userID }))
		total = int64(len(all))
		out = paginate(all, page, limit)
		return nil
	})
	return out, total, err
}

func (r *orderRepo) Create(ctx context.Context, order model.Order) (model.Order, error) {
	err := r.c.do(func(t *tables) error {
		for _, o := range t.orders {
			if o.OrderNumber == order.OrderNumber {
				return repo.ErrConflict
			}
			if order.IdempotencyKey != nil && o.IdempotencyKey != nil &&
				o.UserID == order.UserID && *o.IdempotencyKey == *order.IdempotencyKey {
				return repo.ErrConflict
			}
		}
		now := r.c.now()
		order.ID = t.nextID()
		order.CreatedAt = now
		order.UpdatedAt = now
		t.orders[order.ID] = order
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (r *orderRepo) update(orderID int64, fn func(o *model.Order)) error {
	return r.c.do(func(t *tables) error {
		o, ok := t.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		fn(&o)
		o.UpdatedAt = r.c.now()
		t.orders[orderID] = o
		return nil
	})
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	return r.update(orderID, func(o *model.Order) { o.Status = status })
}

func (r *orderRepo) UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) error {
	return r.update(orderID, func(o *model.Order) { o.PaymentStatus = status })
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	var out model.Order
	found := false
	err := r.c.do(func(t *tables) error {
		for _, o := range t.orders {
			if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
				out, found = o, true
				return nil
			}
		}
		return nil
	})
	return out, found, err
}

func (r *orderRepo) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	var out []model.Order
	var total int64
	err := r.c.do(func(t *tables) error {
		all := newestFirst(sortedByID(t.orders, func(o model.Order) bool {
			if f.Status != "" && string(o.Status) != f.Status {
				return false
			}
			if f.UserID != nil && o.UserID != *f.UserID {
				return false
			}
			if f.From != nil && o.CreatedAt.Before(*f.From) {
				return false
			}
			if f.To != nil && o.CreatedAt.After(*f.To) {
				return false
			}
			return true
		}))
		total = int64(len(all))
		out = paginate(all, f.Page, f.Limit)
		return nil
	})
	return out, total, err
}

type orderItemRepo struct{ c conn }

func (r *orderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	return r.c.do(func(t *tables) error {
		now := r.c.now()
		for i := range items {
			items[i].ID = t.nextID()
			items[i].OrderID = orderID
			items[i].CreatedAt = now
			t.orderItems[items[i].ID] = items[i]
		}
		return nil
	})
}

func (r *orderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var out []model.OrderItem
	err := r.c.do(func(t *tables) error {
		out = sortedByID(t.orderItems, func(it model.OrderItem) bool { return it.OrderID == orderID })
		return nil
	})
	return out, err
}
