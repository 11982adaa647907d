// Package memory is an in-process implementation of every repository. A
// transaction holds the store lock for its whole duration and restores a
// snapshot of the data when the callback fails, which gives service tests
// the same all-or-nothing behaviour as PostgreSQL.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/repository/cart"
	"storefront/internal/repository/category"
	"storefront/internal/repository/customer"
	"storefront/internal/repository/inventory"
	"storefront/internal/repository/order"
	"storefront/internal/repository/promotion"
	"storefront/internal/repository/variant"
)

type state struct {
	seq        map[string]int64
	customers  map[int64]domain.Customer
	categories map[int64]domain.Category
	products   map[int64]domain.Product
	variants   map[int64]domain.Variant
	carts      map[int64]domain.Cart
	cartLines  map[int64]domain.CartLine
	movements  []domain.StockMovement
	orders     map[int64]domain.Order
	payments   map[int64]domain.Payment
	promotions map[int64]domain.Promotion
	usages     []domain.PromotionUsage
}

func newState() *state {
	return &state{
		seq:        map[string]int64{},
		customers:  map[int64]domain.Customer{},
		categories: map[int64]domain.Category{},
		products:   map[int64]domain.Product{},
		variants:   map[int64]domain.Variant{},
		carts:      map[int64]domain.Cart{},
		cartLines:  map[int64]domain.CartLine{},
		orders:     map[int64]domain.Order{},
		payments:   map[int64]domain.Payment{},
		promotions: map[int64]domain.Promotion{},
	}
}

// clone copies every table. Stored values are never mutated through their
// slices, so copying the maps is enough.
func (s *state) clone() *state {
	return &state{
		seq:        maps.Clone(s.seq),
		customers:  maps.Clone(s.customers),
		categories: maps.Clone(s.categories),
		products:   maps.Clone(s.products),
		variants:   maps.Clone(s.variants),
		carts:      maps.Clone(s.carts),
		cartLines:  maps.Clone(s.cartLines),
		movements:  slices.Clone(s.movements),
		orders:     maps.Clone(s.orders),
		payments:   maps.Clone(s.payments),
		promotions: maps.Clone(s.promotions),
		usages:     slices.Clone(s.usages),
	}
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

type Store struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

func New() *Store {
	return &Store{data: newState(), now: time.Now}
}

// scope carries the store and whether the caller already holds its lock.
type scope struct {
	s    *Store
	inTx bool
}

func (sc scope) lock() func() {
	if sc.inTx {
		return func() {}
	}
	sc.s.mu.Lock()
	return sc.s.mu.Unlock
}

func (sc scope) db() *state {
	return sc.s.data
}

func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(txRepos{scope{s: s, inTx: true}}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

var _ repository.TxManager = (*Store)(nil)

func (s *Store) Carts() cart.Repository           { return &cartRepo{scope{s: s}} }
func (s *Store) Inventory() inventory.Repository  { return &inventoryRepo{scope{s: s}} }
func (s *Store) Orders() order.Repository         { return &orderRepo{scope{s: s}} }
func (s *Store) Promotions() promotion.Repository { return &promotionRepo{scope{s: s}} }
func (s *Store) Variants() variant.Repository     { return &variantRepo{scope{s: s}} }
func (s *Store) Customers() customer.Repository   { return &customerRepo{scope{s: s}} }
func (s *Store) Categories() category.Repository  { return &categoryRepo{scope{s: s}} }

type txRepos struct {
	sc scope
}

func (r txRepos) Carts() cart.Repository           { return &cartRepo{r.sc} }
func (r txRepos) Inventory() inventory.Repository  { return &inventoryRepo{r.sc} }
func (r txRepos) Orders() order.Repository         { return &orderRepo{r.sc} }
func (r txRepos) Promotions() promotion.Repository { return &promotionRepo{r.sc} }
func (r txRepos) Variants() variant.Repository     { return &variantRepo{r.sc} }
