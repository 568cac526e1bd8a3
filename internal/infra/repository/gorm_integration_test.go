package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"reweave/internal/domain/model"
	"reweave/internal/infra/db"
	infraRepo "reweave/internal/infra/repository"
	repo "reweave/internal/repository"
	"reweave/internal/usecase"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TEST_DATABASE_DSN が無ければskip
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	gdb, err := db.Connect(dsn, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

type pgEnv struct {
	gdb   *gorm.DB
	ctx   context.Context
	tx    repo.TransactionManager
	repos repo.TxRepos
}

func newPGEnv(t *testing.T) *pgEnv {
	gdb := openTestDB(t)
	return &pgEnv{gdb: gdb, ctx: context.Background(), tx: infraRepo.NewTxManagerGorm(gdb), repos: infraRepo.NewRepos(gdb)}
}

func (e *pgEnv) user(t *testing.T) model.User {
	t.Helper()
	u := &model.User{Email: uuid.NewString() + "@it.test", Name: "IT", PasswordHash: "x", IsActive: true}
	require.NoError(t, e.repos.Users().Create(e.ctx, u))
	return *u
}

func (e *pgEnv) productWithStock(t *testing.T, price string, qty int64) model.Product {
	t.Helper()
	p, err := e.repos.Products().Create(e.ctx, model.Product{
		Name:   "IT-" + uuid.NewString(),
		Price:  decimal.RequireFromString(price),
		Status: model.ProductStatusActive,
	})
	require.NoError(t, err)
	_, err = e.repos.Inventory().Create(e.ctx, model.Inventory{ProductID: p.ID, Location: "main", QuantityAvailable: qty, LowStockThreshold: 5})
	require.NoError(t, err)
	return p
}

func shipping() *usecase.AddressInput {
	return &usecase.AddressInput{
		RecipientName: "IT",
		Phone:         "0123456789",
		AddressLine1:  "1 Jalan Ampang",
		City:          "Kuala Lumpur",
		State:         "WP",
		PostalCode:    "50450",
	}
}

func TestGorm_CheckoutReservesAndAudits(t *testing.T) {
	env := newPGEnv(t)
	u := env.user(t)
	p := env.productWithStock(t, "120.00", 5)

	carts := usecase.NewCartUsecase(env.tx, zap.NewNop())
	_, err := carts.AddItem(env.ctx, model.CartOwner{UserID: u.ID}, usecase.AddCartItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	orders := usecase.NewOrderUsecase(env.tx, zap.NewNop())
	out, err := orders.Checkout(env.ctx, u.ID, usecase.CheckoutInput{ShippingAddress: shipping(), PaymentMethod: "card", IdempotencyKey: uuid.NewString()})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("254.40").Equal(out.Total), out.Total.String())
	require.Len(t, out.Items, 1)

	rows, err := env.repos.Inventory().ListByProduct(env.ctx, p.ID, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].QuantityReserved)

	admin := usecase.NewAdminOrderUsecase(env.tx, zap.NewNop())
	_, err = admin.UpdateStatus(env.ctx, u.ID, out.ID, "confirmed")
	require.NoError(t, err)

	rt := model.AuditResourceOrder
	logs, total, err := env.repos.AuditLogs().List(env.ctx, repo.AuditLogFilter{Page: 1, Limit: 10, ResourceType: &rt, ResourceID: &out.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, model.AuditActionUpdateOrderStatus, logs[0].Action)
}

// 同時に最後の在庫を取り合っても売り越さない
func TestGorm_ConcurrentCheckoutDoesNotOversell(t *testing.T) {
	env := newPGEnv(t)
	p := env.productWithStock(t, "10.00", 3)
	carts := usecase.NewCartUsecase(env.tx, zap.NewNop())
	orders := usecase.NewOrderUsecase(env.tx, zap.NewNop())

	const buyers = 5
	users := make([]model.User, buyers)
	for i := range users {
		users[i] = env.user(t)
		_, err := carts.AddItem(env.ctx, model.CartOwner{UserID: users[i].ID}, usecase.AddCartItemInput{ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for _, u := range users {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := orders.Checkout(env.ctx, userID, usecase.CheckoutInput{ShippingAddress: shipping(), PaymentMethod: "card"})
			mu.Lock()
			defer mu.Unlock()
			var inv *usecase.InsufficientInventoryError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &inv):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u.ID)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, buyers-3, rejected)

	rows, err := env.repos.Inventory().ListByProduct(env.ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows[0].QuantityReserved)
	assert.Equal(t, int64(0), rows[0].Effective())
}

func TestGorm_DuplicateEmailIsConflict(t *testing.T) {
	env := newPGEnv(t)
	u := env.user(t)

	dup := &model.User{Email: u.Email, Name: "dup", PasswordHash: "x", IsActive: true}
	err := env.repos.Users().Create(env.ctx, dup)
	assert.ErrorIs(t, err, repo.ErrConflict)
}

// 初回のカート作成が同時に走ってもACTIVEは1つ、明細も1行にまとまる
func TestGorm_ConcurrentFirstAddKeepsSingleActiveCart(t *testing.T) {
	env := newPGEnv(t)
	p := env.productWithStock(t, "10.00", 50)
	carts := usecase.NewCartUsecase(env.tx, zap.NewNop())
	owner := model.CartOwner{SessionID: "it-" + uuid.NewString()}

	const adds = 4
	var wg sync.WaitGroup
	errs := make([]error, adds)
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = carts.AddItem(env.ctx, owner, usecase.AddCartItemInput{ProductID: p.ID, Quantity: 1})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var active int64
	require.NoError(t, env.gdb.Model(&model.Cart{}).
		Where("session_id = ? AND status = ?", owner.SessionID, model.CartStatusActive).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)

	cart, err := env.repos.Carts().FindActiveByOwner(env.ctx, owner)
	require.NoError(t, err)
	items, err := env.repos.CartItems().ListByCartID(env.ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(adds), items[0].Quantity)
}

func TestGorm_ActiveCartAndLineAreUnique(t *testing.T) {
	env := newPGEnv(t)
	u := env.user(t)
	p := env.productWithStock(t, "10.00", 5)

	first, err := env.repos.Carts().GetOrCreateActive(env.ctx, model.CartOwner{UserID: u.ID})
	require.NoError(t, err)

	// 2つ目のACTIVEはDBが拒否する
	uid := u.ID
	err = env.gdb.Create(&model.Cart{UserID: &uid, Status: model.CartStatusActive}).Error
	require.Error(t, err)

	again, err := env.repos.Carts().GetOrCreateActive(env.ctx, model.CartOwner{UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	line := model.CartItem{CartID: first.ID, ProductID: p.ID, Quantity: 1, Price: p.Price}
	_, err = env.repos.CartItems().Create(env.ctx, line)
	require.NoError(t, err)
	_, err = env.repos.CartItems().Create(env.ctx, line)
	assert.ErrorIs(t, err, repo.ErrConflict)
}
