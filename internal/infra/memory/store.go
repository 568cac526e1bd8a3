// Package memory はrepositoryのメモリ実装。
// テストのDIと STORE_DRIVER=memory のローカル起動で使う。
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"
)

type tables struct {
	seq int64

	users          map[int64]model.User
	products       map[int64]model.Product
	variants       map[int64]model.ProductVariant
	inventory      map[int64]model.Inventory
	movements      []model.InventoryMovement
	carts          map[int64]model.Cart
	cartItems      map[int64]model.CartItem
	orders         map[int64]model.Order
	orderItems     map[int64]model.OrderItem
	addresses      map[int64]model.Address
	paymentMethods map[int64]model.PaymentMethod
	wishlist       map[int64]model.WishlistItem
	loyalty        map[int64]model.LoyaltyTransaction
	auditLogs      map[int64]model.AuditLog
}

func newTables() *tables {
	return &tables{
		users:          map[int64]model.User{},
		products:       map[int64]model.Product{},
		variants:       map[int64]model.ProductVariant{},
		inventory:      map[int64]model.Inventory{},
		carts:          map[int64]model.Cart{},
		cartItems:      map[int64]model.CartItem{},
		orders:         map[int64]model.Order{},
		orderItems:     map[int64]model.OrderItem{},
		addresses:      map[int64]model.Address{},
		paymentMethods: map[int64]model.PaymentMethod{},
		wishlist:       map[int64]model.WishlistItem{},
		loyalty:        map[int64]model.LoyaltyTransaction{},
		auditLogs:      map[int64]model.AuditLog{},
	}
}

// rollback用のコピー。行は値で持っているのでmapの複製で足りる
func (t *tables) clone() *tables {
	return &tables{
		seq:            t.seq,
		users:          maps.Clone(t.users),
		products:       maps.Clone(t.products),
		variants:       maps.Clone(t.variants),
		inventory:      maps.Clone(t.inventory),
		movements:      slices.Clone(t.movements),
		carts:          maps.Clone(t.carts),
		cartItems:      maps.Clone(t.cartItems),
		orders:         maps.Clone(t.orders),
		orderItems:     maps.Clone(t.orderItems),
		addresses:      maps.Clone(t.addresses),
		paymentMethods: maps.Clone(t.paymentMethods),
		wishlist:       maps.Clone(t.wishlist),
		loyalty:        maps.Clone(t.loyalty),
		auditLogs:      maps.Clone(t.auditLogs),
	}
}

func (t *tables) nextID() int64 {
	t.seq++
	return t.seq
}

// Store は全テーブルを1つのmutexで守る。
// WithinTxの間はロックを持ちっぱなしにするので、tx同士は直列になる。
type Store struct {
	mu  sync.Mutex
	t   *tables
	now func() time.Time
}

func NewStore() *Store {
	return &Store{t: newTables(), now: time.Now}
}

// 時刻を固定したいテスト用
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// conn はrepoからStoreへの入口。inTxならロック済み。
type conn struct {
	s    *Store
	inTx bool
}

func (c conn) do(fn func(t *tables) error) error {
	if !c.inTx {
		c.s.mu.Lock()
		defer c.s.mu.Unlock()
	}
	return fn(c.s.t)
}

func (c conn) now() time.Time {
	return c.s.now()
}

type txRepos struct {
	c conn
}

func (r txRepos) Orders() repo.OrderRepository                 { return &orderRepo{r.c} }
func (r txRepos) OrderItems() repo.OrderItemRepository         { return &orderItemRepo{r.c} }
func (r txRepos) Carts() repo.CartRepository                   { return &cartRepo{r.c} }
func (r txRepos) CartItems() repo.CartItemRepository           { return &cartItemRepo{r.c} }
func (r txRepos) Inventory() repo.InventoryRepository          { return &inventoryRepo{r.c} }
func (r txRepos) Products() repo.ProductRepository             { return &productRepo{r.c} }
func (r txRepos) Users() repo.UserRepository                   { return &userRepo{r.c} }
func (r txRepos) Loyalty() repo.LoyaltyRepository              { return &loyaltyRepo{r.c} }
func (r txRepos) Addresses() repo.AddressRepository            { return &addressRepo{r.c} }
func (r txRepos) PaymentMethods() repo.PaymentMethodRepository { return &paymentMethodRepo{r.c} }
func (r txRepos) Wishlist() repo.WishlistRepository            { return &wishlistRepo{r.c} }
func (r txRepos) AuditLogs() repo.AuditLogRepository           { return &auditLogRepo{r.c} }

// Repos はtx外で使うrepo一式
func (s *Store) Repos() repo.TxRepos {
	return txRepos{c: conn{s: s}}
}

// WithinTx はfnがerrorを返したら開始前の状態に戻す。
func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.t.clone()
	if err := fn(txRepos{c: conn{s: s, inTx: true}}); err != nil {
		s.t = snapshot
		return err
	}
	return nil
}

// テストの検証用
func (s *Store) Movements() []model.InventoryMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.t.movements)
}

// id順に並べて返す
func sortedByID[T any](m map[int64]T, keep func(T) bool) []T {
	ids := slices.Sorted(maps.Keys(m))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v := m[id]
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// page/limitで切り出す
func paginate[T any](list []T, page, limit int) []T {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		return list
	}
	start := (page - 1) * limit
	if start >= len(list) {
		return []T{}
	}
	end := min(start+limit, len(list))
	return list[start:end]
}

func ptr[T any](v T) *T {
	return &v
}
var _ repo.TransactionManager = (*Store)(nil)
