package memory

import (
	"context"
	"errors"
	"testing"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	p, err := s.Repos().Products().Create(ctx, model.Product{Name: "Tote", Price: decimal.NewFromInt(10), Status: model.ProductStatusActive})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithinTx(ctx, func(r repo.TxRepos) error {
		p.Name = "changed"
		if err := r.Products().Update(ctx, p); err != nil {
			return err
		}
		if _, err := r.Inventory().Create(ctx, model.Inventory{ProductID: p.ID, QuantityAvailable: 5}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Repos().Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tote", got.Name)

	rows, err := s.Repos().Inventory().ListByProduct(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWithinTx_Commit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		_, err := r.Carts().GetOrCreateActive(ctx, model.CartOwner{SessionID: "guest-1"})
		return err
	})
	require.NoError(t, err)

	cart, err := s.Repos().Carts().FindActiveByOwner(ctx, model.CartOwner{SessionID: "guest-1"})
	require.NoError(t, err)
	assert.Equal(t, "guest-1", *cart.SessionID)
	assert.Nil(t, cart.UserID)
}

func TestCartItems_UniqueLine(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	items := s.Repos().CartItems()

	v := int64(7)
	_, err := items.Create(ctx, model.CartItem{CartID: 1, ProductID: 2, VariantID: &v, Quantity: 1})
	require.NoError(t, err)

	_, err = items.Create(ctx, model.CartItem{CartID: 1, ProductID: 2, VariantID: &v, Quantity: 1})
	assert.ErrorIs(t, err, repo.ErrConflict)

	// variant無しは別の行
	_, err = items.Create(ctx, model.CartItem{CartID: 1, ProductID: 2, Quantity: 1})
	assert.NoError(t, err)
}

func TestInventory_ListByProduct(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	inv := s.Repos().Inventory()

	v1, v2 := int64(1), int64(2)
	_, _ = inv.Create(ctx, model.Inventory{ProductID: 10, VariantID: &v1, QuantityAvailable: 3})
	_, _ = inv.Create(ctx, model.Inventory{ProductID: 10, VariantID: &v2, QuantityAvailable: 4})
	_, _ = inv.Create(ctx, model.Inventory{ProductID: 11, QuantityAvailable: 9})

	all, err := inv.ListByProduct(ctx, 10, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := inv.ListByProduct(ctx, 10, &v2)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, int64(4), one[0].QuantityAvailable)
}

func TestSetDefault_Exclusive(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	addrs := s.Repos().Addresses()

	a, _ := addrs.Create(ctx, model.Address{UserID: 1, RecipientName: "A", IsDefault: true})
	b, _ := addrs.Create(ctx, model.Address{UserID: 1, RecipientName: "B"})

	require.NoError(t, addrs.SetDefault(ctx, 1, b.ID))

	list, err := addrs.ListByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.Equal(t, a.ID, list[1].ID)
	assert.False(t, list[1].IsDefault)

	// 他人の住所は見えない
	assert.ErrorIs(t, addrs.SetDefault(ctx, 2, a.ID), repo.ErrNotFound)
}
