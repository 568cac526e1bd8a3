package repository

import (
	"context"

	repo "reweave/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders         repo.OrderRepository
	orderItems     repo.OrderItemRepository
	carts          repo.CartRepository
	cartItems      repo.CartItemRepository
	inventory      repo.InventoryRepository
	products       repo.ProductRepository
	users          repo.UserRepository
	loyalty        repo.LoyaltyRepository
	addresses      repo.AddressRepository
	paymentMethods repo.PaymentMethodRepository
	wishlist       repo.WishlistRepository
	auditLogs      repo.AuditLogRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository                 { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository         { return r.orderItems }
func (r *txReposGorm) Carts() repo.CartRepository                   { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository           { return r.cartItems }
func (r *txReposGorm) Inventory() repo.InventoryRepository          { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository             { return r.products }
func (r *txReposGorm) Users() repo.UserRepository                   { return r.users }
func (r *txReposGorm) Loyalty() repo.LoyaltyRepository              { return r.loyalty }
func (r *txReposGorm) Addresses() repo.AddressRepository            { return r.addresses }
func (r *txReposGorm) PaymentMethods() repo.PaymentMethodRepository { return r.paymentMethods }
func (r *txReposGorm) Wishlist() repo.WishlistRepository            { return r.wishlist }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository           { return r.auditLogs }

// NewRepos はtxでない通常のDBでrepo一式を作る。
func NewRepos(db *gorm.DB) repo.TxRepos {
	return &txReposGorm{
		orders:         NewOrderGormRepository(db),
		orderItems:     NewOrderItemGormRepository(db),
		carts:          NewCartGormRepository(db),
		cartItems:      NewCartItemGormRepository(db),
		inventory:      NewInventoryGormRepository(db),
		products:       NewProductGormRepository(db),
		users:          NewUserGormRepository(db),
		loyalty:        NewLoyaltyGormRepository(db),
		addresses:      NewAddressGormRepository(db),
		paymentMethods: NewPaymentMethodGormRepository(db),
		wishlist:       NewWishlistGormRepository(db),
		auditLogs:      NewAuditLogGormRepository(db),
	}
}

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		return fn(NewRepos(tx))
	})
}

var _ repo.TransactionManager = (*TxManagerGorm)(nil)
