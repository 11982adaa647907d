// Package pgtest provides a migrated PostgreSQL pool for integration tests.
// TEST_DB_DSN points the tests at an existing database; otherwise a
// disposable postgres container is started once per test binary.
package pgtest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"storefront/internal/db"
	"storefront/internal/migrate"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

// Pool returns a pool over freshly truncated tables. It skips under -short.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}
	ctx := context.Background()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		containerOnce.Do(func() {
			containerDSN, containerErr = startContainer(ctx)
		})
		if containerErr != nil {
			t.Skipf("postgres unavailable: %v", containerErr)
		}
		dsn = containerDSN
	}

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	Reset(ctx, t, pool)
	return pool
}

func startContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "storefront",
			"POSTGRES_PASSWORD": "storefront",
			"POSTGRES_DB":       "storefront_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("container port: %w", err)
	}
	return fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront_test?sslmode=disable", host, port.Port()), nil
}

// Reset empties every application table.
func Reset(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	const q = `
TRUNCATE promotion_usages, payments, order_lines, orders, promotion_categories, promotions,
         stock_movements, cart_lines, carts, variant_categories, variants, products, categories, customers
RESTART IDENTITY CASCADE
`
	if _, err := pool.Exec(ctx, q); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

// Customer inserts a customer row and returns its id.
func Customer(ctx context.Context, t *testing.T, pool *pgxpool.Pool, email string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(ctx, `INSERT INTO customers (email, password_hash) VALUES ($1, 'x') RETURNING id`, email).Scan(&id)
	if err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	return id
}

// Category inserts a category row and returns its id.
func Category(ctx context.Context, t *testing.T, pool *pgxpool.Pool, slug string) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(ctx, `INSERT INTO categories (name, slug) VALUES ($1, $1) RETURNING id`, slug).Scan(&id)
	if err != nil {
		t.Fatalf("insert category: %v", err)
	}
	return id
}

// Variant inserts a product and a variant with the given price and stock.
// The stock is written directly, bypassing the ledger, so tests start from a
// known quantity without a movement row.
func Variant(ctx context.Context, t *testing.T, pool *pgxpool.Pool, sku, price string, stock int64, categoryIDs ...int64) int64 {
	t.Helper()
	var productID, id int64
	if err := pool.QueryRow(ctx, `INSERT INTO products (name) VALUES ($1) RETURNING id`, sku).Scan(&productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	err := pool.QueryRow(ctx, `
INSERT INTO variants (product_id, sku, name, price, quantity_in_stock)
VALUES ($1, $2, $2, $3, $4)
RETURNING id
`, productID, sku, decimal.RequireFromString(price), stock).Scan(&id)
	if err != nil {
		t.Fatalf("insert variant: %v", err)
	}
	for _, c := range categoryIDs {
		if _, err := pool.Exec(ctx, `INSERT INTO variant_categories (variant_id, category_id) VALUES ($1, $2)`, id, c); err != nil {
			t.Fatalf("link category: %v", err)
		}
	}
	return id
}
