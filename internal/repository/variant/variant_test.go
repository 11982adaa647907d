package variant

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/testutil/pgtest"
)

func TestPostgres_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	catID := pgtest.Category(ctx, t, pool, "shirts")

	repo := NewPostgres(pool, nil)
	product, err := repo.CreateProduct(ctx, domain.Product{Name: "Tee"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	created, err := repo.Create(ctx, CreateInput{
		ProductID:   product.ID,
		SKU:         "TEE-M",
		Name:        "Tee M",
		Price:       decimal.RequireFromString("19.999"),
		CategoryIDs: []int64{catID},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.QuantityInStock != 0 {
		t.Fatalf("new variants start without stock, got %d", created.QuantityInStock)
	}

	got, err := repo.GetBySKU(ctx, "TEE-M")
	if err != nil {
		t.Fatalf("GetBySKU: %v", err)
	}
	if got.ID != created.ID || !got.Price.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("unexpected variant %+v", got)
	}
	if len(got.CategoryIDs) != 1 || got.CategoryIDs[0] != catID {
		t.Fatalf("unexpected categories %v", got.CategoryIDs)
	}

	if _, err := repo.Create(ctx, CreateInput{ProductID: product.ID, SKU: "TEE-M", Name: "dup", Price: decimal.NewFromInt(1)}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := repo.GetByID(ctx, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_LockForUpdateOrdersByID(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	a := pgtest.Variant(ctx, t, pool, "A", "10.00", 5)
	b := pgtest.Variant(ctx, t, pool, "B", "25.00", 5)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	locked, err := NewPostgres(tx, nil).LockForUpdate(ctx, []int64{b, a, b})
	if err != nil {
		t.Fatalf("LockForUpdate: %v", err)
	}
	if len(locked) != 2 || locked[0].ID != a || locked[1].ID != b {
		t.Fatalf("expected ascending [%d %d], got %+v", a, b, locked)
	}

	if _, err := NewPostgres(tx, nil).LockForUpdate(ctx, []int64{a, 4242}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}
