package usecase

import (
	"context"
	"testing"

	"reweave/internal/domain/model"
	"reweave/internal/infra/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =====================
// テスト用の店（メモリストア）
// =====================

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	log   *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, ctx: context.Background(), store: memory.NewStore(), log: zap.NewNop()}
}

func (f *fixture) user(email string) model.User {
	f.t.Helper()
	u := &model.User{Email: email, Name: "Test", PasswordHash: "x", IsActive: true}
	require.NoError(f.t, f.store.Repos().Users().Create(f.ctx, u))
	return *u
}

func (f *fixture) product(name string, price string) model.Product {
	f.t.Helper()
	p, err := f.store.Repos().Products().Create(f.ctx, model.Product{
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Status: model.ProductStatusActive,
	})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) variant(productID int64, name, sku string) model.ProductVariant {
	f.t.Helper()
	vs, err := f.store.Repos().Products().CreateVariants(f.ctx, productID, []model.ProductVariant{{Name: name, SKU: sku}})
	require.NoError(f.t, err)
	return vs[0]
}

func (f *fixture) stock(productID int64, variantID *int64, qty int64) model.Inventory {
	f.t.Helper()
	inv, err := f.store.Repos().Inventory().Create(f.ctx, model.Inventory{
		ProductID:         productID,
		VariantID:         variantID,
		Location:          "main",
		QuantityAvailable: qty,
		LowStockThreshold: 5,
	})
	require.NoError(f.t, err)
	return inv
}

func (f *fixture) inventory(productID int64) []model.Inventory {
	f.t.Helper()
	rows, err := f.store.Repos().Inventory().ListByProduct(f.ctx, productID, nil)
	require.NoError(f.t, err)
	return rows
}

func (f *fixture) carts() *CartUsecase {
	return NewCartUsecase(f.store, f.log)
}

func (f *fixture) orders() *OrderUsecase {
	return NewOrderUsecase(f.store, f.log)
}

func userOwner(id int64) model.CartOwner {
	return model.CartOwner{UserID: id}
}

func guestOwner(sid string) model.CartOwner {
	return model.CartOwner{SessionID: sid}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s got %s", want, got)
}

// HTTPErrorのステータスとメッセージを確認する
func assertHTTPError(t *testing.T, err error, status int, msg string) {
	t.Helper()
	he, isHTTP := AsHTTPError(err)
	if assert.True(t, isHTTP, "want HTTPError, got %v", err) {
		assert.Equal(t, status, he.Status)
		if msg != "" {
			assert.Equal(t, msg, he.Message)
		}
	}
}

func shippingInput() *AddressInput {
	return &AddressInput{
		RecipientName: "Aina",
		Phone:         "0123456789",
		AddressLine1:  "1 Jalan Ampang",
		City:          "Kuala Lumpur",
		State:         "WP",
		PostalCode:    "50450",
	}
}
