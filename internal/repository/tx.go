package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"storefront/internal/db"
	"storefront/internal/repository/cart"
	"storefront/internal/repository/inventory"
	"storefront/internal/repository/order"
	"storefront/internal/repository/promotion"
	"storefront/internal/repository/variant"
)

// TxRepos hands out repositories bound to one open transaction.
type TxRepos interface {
	Carts() cart.Repository
	Inventory() inventory.Repository
	Orders() order.Repository
	Promotions() promotion.Repository
	Variants() variant.Repository
}

// TxManager runs a unit of work in a transaction. fn may be invoked more than
// once when the database asks for a retry.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(repos TxRepos) error) error
}

type pgTxManager struct {
	gw *db.Gateway
}

func NewTxManager(gw *db.Gateway) TxManager {
	return &pgTxManager{gw: gw}
}

func (m *pgTxManager) WithinTx(ctx context.Context, fn func(repos TxRepos) error) error {
	return m.gw.WithinTx(ctx, func(tx pgx.Tx) error {
		return fn(txRepos{tx: tx})
	})
}

type txRepos struct {
	tx pgx.Tx
}

func (r txRepos) Carts() cart.Repository           { return cart.NewPostgres(r.tx) }
func (r txRepos) Inventory() inventory.Repository  { return inventory.NewPostgres(r.tx) }
func (r txRepos) Orders() order.Repository         { return order.NewPostgres(r.tx) }
func (r txRepos) Promotions() promotion.Repository { return promotion.NewPostgres(r.tx) }
func (r txRepos) Variants() variant.Repository     { return variant.NewPostgres(r.tx, nil) }
