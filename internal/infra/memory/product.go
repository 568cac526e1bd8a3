package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"gorm.io/gorm"
)

type productRepo struct{ c conn }

func (r *productRepo) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var out []model.Product
	var total int64
	err := r.c.do(func(t *tables) error {
		s := strings.ToLower(strings.TrimSpace(q.Q))
		list := sortedByID(t.products, func(p model.Product) bool {
			if p.DeletedAt.Valid || !p.IsActive() {
				return false
			}
			if s != "" && !strings.Contains(strings.ToLower(p.Name), s) && !strings.Contains(strings.ToLower(p.Description), s) {
				return false
			}
			if q.Category != "" && p.Category != q.Category {
				return false
			}
			if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
				return false
			}
			if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
				return false
			}
			return true
		})

		switch q.Sort {
		case "price_asc":
			slices.SortStableFunc(list, func(a, b model.Product) int {
				if c := a.Price.Cmp(b.Price); c != 0 {
					return c
				}
				return cmp.Compare(a.ID, b.ID)
			})
		case "price_desc":
			slices.SortStableFunc(list, func(a, b model.Product) int {
				if c := b.Price.Cmp(a.Price); c != 0 {
					return c
				}
				return cmp.Compare(b.ID, a.ID)
			})
		default:
			slices.SortStableFunc(list, func(a, b model.Product) int {
				if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
					return c
				}
				return cmp.Compare(b.ID, a.ID)
			})
		}

		total = int64(len(list))
		out = paginate(list, q.Page, q.Limit)
		return nil
	})
	return out, total, err
}

func (r *productRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var out model.Product
	err := r.c.do(func(t *tables) error {
		p, ok := t.products[id]
		if !ok || p.DeletedAt.Valid {
			return repo.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

// 削除済みも含める
func (r *productRepo) ListByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	var out []model.Product
	err := r.c.do(func(t *tables) error {
		out = sortedByID(t.products, func(p model.Product) bool { return slices.Contains(ids, p.ID) })
		return nil
	})
	return out, err
}

func (r *productRepo) FindVariant(ctx context.Context, productID, variantID int64) (model.ProductVariant, error) {
	var out model.ProductVariant
	err := r.c.do(func(t *tables) error {
		v, ok := t.variants[variantID]
		if !ok || v.ProductID != productID {
			return repo.ErrNotFound
		}
		out = v
		return nil
	})
	return out, err
}

func (r *productRepo) ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error) {
	var out []model.ProductVariant
	err := r.c.do(func(t *tables) error {
		out = sortedByID(t.variants, func(v model.ProductVariant) bool { return v.ProductID == productID })
		return nil
	})
	return out, err
}

func (r *productRepo) CreateVariants(ctx context.Context, productID int64, variants []model.ProductVariant) ([]model.ProductVariant, error) {
	out := make([]model.ProductVariant, 0, len(variants))
	err := r.c.do(func(t *tables) error {
		for _, v := range variants {
			// skuは一意
			for _, ex := range t.variants {
				if v.SKU != "" && ex.SKU == v.SKU {
					return repo.ErrConflict
				}
			}
			now := r.c.now()
			v.ID = t.nextID()
			v.ProductID = productID
			v.CreatedAt = now
			v.UpdatedAt = now
			t.variants[v.ID] = v
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	err := r.c.do(func(t *tables) error {
		now := r.c.now()
		p.ID = t.nextID()
		if p.Status == "" {
			p.Status = model.ProductStatusDraft
		}
		p.CreatedAt = now
		p.UpdatedAt = now
		t.products[p.ID] = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *productRepo) Update(ctx context.Context, p model.Product) error {
	return r.c.do(func(t *tables) error {
		cur, ok := t.products[p.ID]
		if !ok || cur.DeletedAt.Valid {
			return repo.ErrNotFound
		}
		cur.Name = p.Name
		cur.Description = p.Description
		cur.Category = p.Category
		cur.Images = p.Images
		cur.Price = p.Price
		cur.Status = p.Status
		cur.UpdatedAt = r.c.now()
		t.products[p.ID] = cur
		return nil
	})
}

func (r *productRepo) SoftDelete(ctx context.Context, id int64) error {
	return r.c.do(func(t *tables) error {
		cur, ok := t.products[id]
		if !ok || cur.DeletedAt.Valid {
			return repo.ErrNotFound
		}
		cur.DeletedAt = gorm.DeletedAt{Time: r.c.now(), Valid: true}
		t.products[id] = cur
		return nil
	})
}
