package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository/memory"
)

func newService() (*Service, *memory.Store) {
	store := memory.New()
	return New(store, store.Variants(), store.Categories()), store
}

func TestUpsertVariant_CreatesThenReprices(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()

	cat, err := svc.UpsertCategory(ctx, domain.Category{Name: "Shoes", Slug: " Shoes "})
	if err != nil {
		t.Fatalf("upsert category: %v", err)
	}
	if cat.Slug != "shoes" {
		t.Fatalf("expected normalised slug, got %q", cat.Slug)
	}

	in := VariantInput{
		ProductName: "Runner",
		SKU:         "RUN-42",
		Price:       decimal.RequireFromString("59.999"),
		WeightGrams: 800,
		CategoryIDs: []int64{cat.ID},
	}
	v, created, err := svc.UpsertVariant(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created || v.Name != "Runner" || v.Price.StringFixed(2) != "60.00" {
		t.Fatalf("unexpected variant %+v created=%v", v, created)
	}
	if store.Stock(v.ID) != 0 {
		t.Fatalf("new variants start without stock")
	}

	in.Price = decimal.RequireFromString("49.00")
	again, created, err := svc.UpsertVariant(ctx, in)
	if err != nil {
		t.Fatalf("reprice: %v", err)
	}
	if created || again.ID != v.ID {
		t.Fatalf("expected existing variant %d, got %d created=%v", v.ID, again.ID, created)
	}
	got, err := svc.GetVariant(ctx, v.ID)
	if err != nil || got.Price.StringFixed(2) != "49.00" {
		t.Fatalf("price not updated: %+v %v", got, err)
	}

	list, err := svc.ListVariants(ctx, 0, -1)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %v", list, err)
	}
}

func TestUpsertVariant_Validation(t *testing.T) {
	svc, _ := newService()
	cases := []VariantInput{
		{ProductName: "x"},
		{SKU: "A"},
		{SKU: "A", ProductName: "x", Price: decimal.NewFromInt(-1)},
		{SKU: "A", ProductName: "x", WeightGrams: -1},
	}
	for _, in := range cases {
		if _, _, err := svc.UpsertVariant(context.Background(), in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation for %+v, got %v", in, err)
		}
	}
	if _, err := svc.UpsertCategory(context.Background(), domain.Category{Slug: "x"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for nameless category, got %v", err)
	}
}

func TestGetVariant_NotFound(t *testing.T) {
	svc, _ := newService()
	if _, err := svc.GetVariant(context.Background(), 7); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
