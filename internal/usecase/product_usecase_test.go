package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// Mock: ProductCache
// =====================

type ProductCacheMock struct{ mock.Mock }

func (m *ProductCacheMock) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *ProductCacheMock) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *ProductCacheMock) Del(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

var errCacheMiss = errors.New("cache miss")

func (f *fixture) products(cache ProductCache) *ProductUsecase {
	r := f.store.Repos()
	return NewProductUsecase(f.store, r.Products(), r.Inventory(), cache, 5*time.Minute, f.log)
}

func TestProductUsecase_ListPublicProducts_Validation(t *testing.T) {
	f := newFixture(t)
	uc := f.products(nil)

	neg := dec("-1")
	lo, hi := dec("50"), dec("10")

	cases := []struct {
		name string
		in   ListProductsInput
		msg  string
	}{
		{"page", ListProductsInput{Page: 0, Limit: 10}, "invalid page"},
		{"limit", ListProductsInput{Page: 1, Limit: 101}, "invalid limit"},
		{"min", ListProductsInput{Page: 1, Limit: 10, MinPrice: &neg}, "min_price must be >= 0"},
		{"range", ListProductsInput{Page: 1, Limit: 10, MinPrice: &lo, MaxPrice: &hi}, "min_price must be <= max_price"},
		{"sort", ListProductsInput{Page: 1, Limit: 10, Sort: "popular"}, "invalid sort"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.ListPublicProducts(f.ctx, tc.in)
			assertHTTPError(t, err, http.StatusBadRequest, tc.msg)
		})
	}
}

func TestProductUsecase_ListPublicProducts_FiltersAndSorts(t *testing.T) {
	f := newFixture(t)
	f.product("Batik Shirt", "80.00")
	f.product("Songket Scarf", "150.00")
	f.product("Batik Sarong", "40.00")

	draft, err := f.store.Repos().Products().Create(f.ctx, model.Product{Name: "Batik Draft", Price: dec("1"), Status: model.ProductStatusDraft})
	require.NoError(t, err)

	uc := f.products(nil)

	out, err := uc.ListPublicProducts(f.ctx, ListProductsInput{Page: 1, Limit: 10, Q: "batik", Sort: "price_asc"})
	require.NoError(t, err)
	require.Equal(t, int64(2), out.Total)
	assert.Equal(t, "Batik Sarong", out.Items[0].Name)
	assert.Equal(t, "Batik Shirt", out.Items[1].Name)
	for _, p := range out.Items {
		assert.NotEqual(t, draft.ID, p.ID)
	}

	ceiling := dec("100")
	out, err = uc.ListPublicProducts(f.ctx, ListProductsInput{Page: 1, Limit: 1, MaxPrice: &ceiling, Sort: "price_desc"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Batik Shirt", out.Items[0].Name)
}

func TestProductUsecase_GetProductDetail_Availability(t *testing.T) {
	f := newFixture(t)
	p := f.product("A", "10.00")
	v := f.variant(p.ID, "Red", "A-RED")
	f.stock(p.ID, &v.ID, 7)
	f.stock(p.ID, nil, 3)

	uc := f.products(nil)
	out, err := uc.GetProductDetail(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), out.AvailableQuantity)
	assert.True(t, out.InStock)
	require.Len(t, out.Variants, 1)
	assert.Equal(t, int64(7), out.Variants[0].AvailableQuantity)

	_, err = uc.GetProductDetail(f.ctx, 999)
	assertHTTPError(t, err, http.StatusNotFound, "Product not found")
}

// 下書きは公開しない
func TestProductUsecase_GetProductDetail_DraftIsHidden(t *testing.T) {
	f := newFixture(t)
	p, err := f.store.Repos().Products().Create(f.ctx, model.Product{Name: "D", Price: dec("1"), Status: model.ProductStatusDraft})
	require.NoError(t, err)

	_, err = f.products(nil).GetProductDetail(f.ctx, p.ID)
	assertHTTPError(t, err, http.StatusNotFound, "Product not found")
}

func TestProductUsecase_GetProductDetail_Cache(t *testing.T) {
	f := newFixture(t)
	p := f.product("A", "10.00")
	f.stock(p.ID, nil, 4)
	key := productCacheKey(p.ID)

	t.Run("miss then set", func(t *testing.T) {
		cache := new(ProductCacheMock)
		cache.On("GetJSON", mock.Anything, key, mock.Anything).Return(errCacheMiss).Once()
		cache.On("SetJSON", mock.Anything, key, mock.AnythingOfType("usecase.cachedProduct"), 5*time.Minute).Return(nil).Once()

		out, err := f.products(cache).GetProductDetail(f.ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", out.Name)
		cache.AssertExpectations(t)
	})

	t.Run("hit still reads stock", func(t *testing.T) {
		cache := new(ProductCacheMock)
		cache.On("GetJSON", mock.Anything, key, mock.Anything).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*cachedProduct)
				*dest = cachedProduct{Product: model.Product{ID: p.ID, Name: "Cached", Status: model.ProductStatusActive, Price: dec("10")}}
			}).
			Return(nil).Once()

		out, err := f.products(cache).GetProductDetail(f.ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Cached", out.Name)
		assert.Equal(t, int64(4), out.AvailableQuantity)
		cache.AssertNotCalled(t, "SetJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestProductUsecase_AdminCreateProduct(t *testing.T) {
	f := newFixture(t)
	uc := f.products(nil)
	red := dec("12.50")

	out, err := uc.AdminCreateProduct(f.ctx, adminID, AdminCreateProductInput{
		Name:         " Kebaya ",
		Price:        dec("10.00"),
		Status:       "active",
		Variants:     []VariantInput{{Name: "Red", SKU: "K-RED", Price: &red}, {Name: "Blue", SKU: "K-BLUE"}},
		InitialStock: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kebaya", out.Name)
	assert.Equal(t, model.ProductStatusActive, out.Status)
	require.Len(t, out.Variants, 2)
	assert.True(t, out.Variants[0].Price.Valid)
	assert.Equal(t, int64(20), out.AvailableQuantity)

	rows := f.inventory(out.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(20), rows[0].QuantityAvailable)

	logs, total, err := f.store.Repos().AuditLogs().List(f.ctx, repo.AuditLogFilter{Page: 1, Limit: 50})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, model.AuditActionCreateProduct, logs[0].Action)

	// 既定は下書き
	draft, err := uc.AdminCreateProduct(f.ctx, adminID, AdminCreateProductInput{Name: "D", Price: decimal.Zero})
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusDraft, draft.Status)
	assert.False(t, draft.InStock)

	_, err = uc.AdminCreateProduct(f.ctx, adminID, AdminCreateProductInput{Name: "Dup", Price: dec("1"), Variants: []VariantInput{{Name: "X", SKU: "K-RED"}}})
	assertHTTPError(t, err, http.StatusConflict, "sku already exists")

	_, err = uc.AdminCreateProduct(f.ctx, adminID, AdminCreateProductInput{Name: "", Price: dec("1")})
	assertHTTPError(t, err, http.StatusBadRequest, "name required")

	_, err = uc.AdminCreateProduct(f.ctx, adminID, AdminCreateProductInput{Name: "N", Price: dec("-1")})
	assertHTTPError(t, err, http.StatusBadRequest, "price must be >= 0")

	_, err = uc.AdminCreateProduct(f.ctx, adminID, AdminCreateProductInput{Name: "N", Price: dec("1"), Status: "sold"})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid status")
}

func TestProductUsecase_AdminUpdateAndDelete_InvalidateCache(t *testing.T) {
	f := newFixture(t)
	p := f.product("A", "10.00")
	key := productCacheKey(p.ID)

	cache := new(ProductCacheMock)
	cache.On("Del", mock.Anything, []string{key}).Return(nil).Twice()
	uc := f.products(cache)

	price := dec("12.00")
	status := "archived"
	updated, err := uc.AdminUpdateProduct(f.ctx, adminID, p.ID, AdminUpdateProductInput{Price: &price, Status: &status})
	require.NoError(t, err)
	assertDecimal(t, "12.00", updated.Price)
	assert.Equal(t, model.ProductStatusArchived, updated.Status)
	assert.Equal(t, "A", updated.Name)

	require.NoError(t, uc.AdminDeleteProduct(f.ctx, adminID, p.ID))
	_, err = f.store.Repos().Products().FindByID(f.ctx, p.ID)
	assert.Error(t, err)

	assertHTTPError(t, uc.AdminDeleteProduct(f.ctx, adminID, p.ID), http.StatusNotFound, "Product not found")

	cache.AssertExpectations(t)
}
