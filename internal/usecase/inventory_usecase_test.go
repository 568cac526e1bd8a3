package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =====================
// InventoryRepository モック（読み取り失敗の確認用）
// =====================

type inventoryRepoMock struct{ mock.Mock }

func (m *inventoryRepoMock) ListByProduct(ctx context.Context, productID int64, variantID *int64) ([]model.Inventory, error) {
	args := m.Called(ctx, productID, variantID)
	rows, _ := args.Get(0).([]model.Inventory)
	return rows, args.Error(1)
}

func (m *inventoryRepoMock) LockByProduct(ctx context.Context, productID int64, variantID *int64) ([]model.Inventory, error) {
	panic("not used")
}

func (m *inventoryRepoMock) Adjust(ctx context.Context, inventoryID int64, availableDelta, reservedDelta int64) error {
	panic("not used")
}

func (m *inventoryRepoMock) CreateMovement(ctx context.Context, mv model.InventoryMovement) error {
	panic("not used")
}

func (m *inventoryRepoMock) ListAdmin(ctx context.Context, f repo.InventoryListFilter) ([]model.Inventory, int64, error) {
	panic("not used")
}

func (m *inventoryRepoMock) FindByID(ctx context.Context, inventoryID int64) (model.Inventory, error) {
	panic("not used")
}

func (m *inventoryRepoMock) Create(ctx context.Context, inv model.Inventory) (model.Inventory, error) {
	panic("not used")
}

func (m *inventoryRepoMock) Update(ctx context.Context, inv model.Inventory) error {
	panic("not used")
}

var _ repo.InventoryRepository = (*inventoryRepoMock)(nil)

func TestInventoryUsecase_CheckAvailability_FailsClosed(t *testing.T) {
	inv := new(inventoryRepoMock)
	inv.On("ListByProduct", mock.Anything, int64(1), (*int64)(nil)).Return(nil, errors.New("db down"))

	uc := NewInventoryUsecase(nil, inv, nil, zap.NewNop())
	got := uc.CheckAvailability(context.Background(), 1, nil, 1)

	assert.False(t, got.Available)
	assert.Equal(t, int64(0), got.Quantity)
	inv.AssertExpectations(t)
}

func TestInventoryUsecase_CheckAvailability_SumsRows(t *testing.T) {
	inv := new(inventoryRepoMock)
	inv.On("ListByProduct", mock.Anything, int64(1), (*int64)(nil)).Return([]model.Inventory{
		{ID: 1, QuantityAvailable: 5, QuantityReserved: 2},
		{ID: 2, QuantityAvailable: 4, QuantityCommitted: 1},
	}, nil)

	uc := NewInventoryUsecase(nil, inv, nil, zap.NewNop())

	assert.Equal(t, Availability{Available: true, Quantity: 6}, uc.CheckAvailability(context.Background(), 1, nil, 6))
	assert.Equal(t, Availability{Available: false, Quantity: 6}, uc.CheckAvailability(context.Background(), 1, nil, 7))
}

func TestInventoryUsecase_CheckAvailability_NegativeIsZero(t *testing.T) {
	inv := new(inventoryRepoMock)
	inv.On("ListByProduct", mock.Anything, int64(1), (*int64)(nil)).Return([]model.Inventory{
		{ID: 1, QuantityAvailable: 1, QuantityReserved: 3},
	}, nil)

	got := NewInventoryUsecase(nil, inv, nil, zap.NewNop()).CheckAvailability(context.Background(), 1, nil, 1)
	assert.Equal(t, Availability{Available: false, Quantity: 0}, got)
}

func TestReserveStock_SpreadsAcrossRows(t *testing.T) {
	f := newFixture(t)
	p := f.product("A", "10.00")
	f.stock(p.ID, nil, 2)
	f.stock(p.ID, nil, 5)

	err := f.store.WithinTx(f.ctx, func(r repo.TxRepos) error {
		return reserveStock(f.ctx, r, stockRef{OrderID: 77}, p.ID, nil, 4)
	})
	require.NoError(t, err)

	rows := f.inventory(p.ID)
	assert.Equal(t, int64(2), rows[0].QuantityReserved)
	assert.Equal(t, int64(2), rows[1].QuantityReserved)
	assert.Len(t, f.store.Movements(), 2)

	err = f.store.WithinTx(f.ctx, func(r repo.TxRepos) error {
		return reserveStock(f.ctx, r, stockRef{OrderID: 78}, p.ID, nil, 4)
	})
	ie, isInv := AsInsufficientInventory(err)
	require.True(t, isInv)
	assert.Equal(t, int64(3), ie.Available)
}

func TestInventoryUsecase_AdminCreateAndUpdate(t *testing.T) {
	f := newFixture(t)
	p := f.product("A", "10.00")
	uc := NewInventoryUsecase(f.store, f.store.Repos().Inventory(), f.store.Repos().Products(), f.log)

	_, err := uc.AdminCreate(f.ctx, adminID, AdminCreateInventoryInput{ProductID: 999, Stock: 1})
	assertHTTPError(t, err, http.StatusNotFound, "product not found")

	created, err := uc.AdminCreate(f.ctx, adminID, AdminCreateInventoryInput{ProductID: p.ID, Stock: 10})
	require.NoError(t, err)
	assert.Equal(t, "main", created.Location)
	assert.Equal(t, int64(10), created.AvailableStock)
	assert.False(t, created.LowStock)

	// 予約より下には下げられない
	require.NoError(t, f.store.Repos().Inventory().Adjust(f.ctx, created.ID, 0, 4))
	three := int64(3)
	_, err = uc.AdminUpdate(f.ctx, adminID, created.ID, AdminUpdateInventoryInput{Stock: &three, Reason: "count"})
	assertHTTPError(t, err, http.StatusBadRequest, "stock cannot be below reserved quantity")

	_, err = uc.AdminUpdate(f.ctx, adminID, created.ID, AdminUpdateInventoryInput{Stock: &three})
	assertHTTPError(t, err, http.StatusBadRequest, "reason required")

	six := int64(6)
	updated, err := uc.AdminUpdate(f.ctx, adminID, created.ID, AdminUpdateInventoryInput{Stock: &six, Reason: "damaged"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.AvailableStock)
	assert.True(t, updated.LowStock)

	movements := f.store.Movements()
	require.Len(t, movements, 2)
	assert.Equal(t, int64(-4), movements[1].Quantity)
	assert.Equal(t, "damaged", movements[1].Reason)

	low, err := uc.AdminList(f.ctx, repo.InventoryListFilter{Page: 1, Limit: 10, LowStock: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), low.Total)
}

func TestInventoryUsecase_ProductAvailability(t *testing.T) {
	f := newFixture(t)
	p := f.product("Kebaya", "80.00")
	v := f.variant(p.ID, "M", "KB-M")
	f.stock(p.ID, &v.ID, 4)
	f.stock(p.ID, nil, 1)

	other := f.product("Sarong", "30.00")
	ov := f.variant(other.ID, "L", "SR-L")

	draft, err := f.store.Repos().Products().Create(f.ctx, model.Product{Name: "Draft", Price: dec("10.00"), Status: model.ProductStatusDraft})
	require.NoError(t, err)

	uc := NewInventoryUsecase(f.store, f.store.Repos().Inventory(), f.store.Repos().Products(), f.log)

	got, err := uc.ProductAvailability(f.ctx, p.ID, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, Availability{Available: true, Quantity: 5}, got)

	got, err = uc.ProductAvailability(f.ctx, p.ID, &v.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, Availability{Available: false, Quantity: 4}, got)

	tests := []struct {
		name      string
		productID int64
		variantID *int64
		qty       int64
		status    int
		msg       string
	}{
		{"zero quantity", p.ID, nil, 0, http.StatusBadRequest, "Quantity must be a positive integer"},
		{"bad id", 0, nil, 1, http.StatusBadRequest, "invalid id"},
		{"unknown product", 9999, nil, 1, http.StatusNotFound, "Product not found"},
		{"draft product", draft.ID, nil, 1, http.StatusNotFound, "Product not found"},
		{"variant of another product", p.ID, &ov.ID, 1, http.StatusNotFound, "Variant not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.ProductAvailability(f.ctx, tt.productID, tt.variantID, tt.qty)
			assertHTTPError(t, err, tt.status, tt.msg)
		})
	}
}
