// Package seed loads demo catalog data, stock and a promotion for manual
// testing. Running it twice leaves the data unchanged.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	catalogsvc "storefront/internal/service/catalog"
	inventorysvc "storefront/internal/service/inventory"
)

type Catalog interface {
	UpsertCategory(ctx context.Context, c domain.Category) (*domain.Category, error)
	UpsertVariant(ctx context.Context, in catalogsvc.VariantInput) (*domain.Variant, bool, error)
}

type Stock interface {
	ApplyMovement(ctx context.Context, in inventorysvc.MovementInput) (*inventorysvc.MovementResult, error)
}

type Promotions interface {
	Create(ctx context.Context, p domain.Promotion) (*domain.Promotion, error)
}

type variantSeed struct {
	Product  string
	SKU      string
	Name     string
	Price    string
	Grams    int64
	Stock    int64
	Category string
}

var categories = []domain.Category{
	{Name: "Apparel", Slug: "apparel"},
	{Name: "Kitchen", Slug: "kitchen"},
}

var variants = []variantSeed{
	{Product: "Demo T-Shirt", SKU: "SKU-DEMO-TSHIRT-M", Name: "Demo T-Shirt M", Price: "19.99", Grams: 180, Stock: 25, Category: "apparel"},
	{Product: "Demo T-Shirt", SKU: "SKU-DEMO-TSHIRT-L", Name: "Demo T-Shirt L", Price: "19.99", Grams: 200, Stock: 10, Category: "apparel"},
	{Product: "Demo Mug", SKU: "SKU-DEMO-MUG", Name: "Demo Mug", Price: "12.99", Grams: 350, Stock: 40, Category: "kitchen"},
	{Product: "Demo Kettle", SKU: "SKU-DEMO-KETTLE", Name: "Demo Kettle", Price: "49.00", Grams: 1400, Stock: 0, Category: "kitchen"},
}

// Apply inserts the demo data. Initial stock is booked as a restock movement
// only when a variant is first created.
func Apply(ctx context.Context, catalog Catalog, stock Stock, promos Promotions) error {
	slugs := make(map[string]int64, len(categories))
	for _, c := range categories {
		saved, err := catalog.UpsertCategory(ctx, c)
		if err != nil {
			return fmt.Errorf("upsert category %s: %w", c.Slug, err)
		}
		slugs[saved.Slug] = saved.ID
	}

	for _, s := range variants {
		v, created, err := catalog.UpsertVariant(ctx, catalogsvc.VariantInput{
			ProductName: s.Product,
			SKU:         s.SKU,
			Name:        s.Name,
			Price:       decimal.RequireFromString(s.Price),
			WeightGrams: s.Grams,
			CategoryIDs: []int64{slugs[s.Category]},
		})
		if err != nil {
			return fmt.Errorf("upsert variant %s: %w", s.SKU, err)
		}
		if !created || s.Stock == 0 {
			continue
		}
		if _, err := stock.ApplyMovement(ctx, inventorysvc.MovementInput{
			VariantID: v.ID,
			Type:      domain.MovementRestock,
			Delta:     s.Stock,
			Reason:    "seed",
			Actor:     "seed",
		}); err != nil {
			return fmt.Errorf("stock variant %s: %w", s.SKU, err)
		}
	}

	starts := time.Now().UTC().Add(-time.Hour)
	_, err := promos.Create(ctx, domain.Promotion{
		Code:              "SAVE10",
		DiscountType:      domain.DiscountPercentage,
		Rate:              decimal.NewFromInt(10),
		StartsAt:          &starts,
		MinimumOrderValue: decimal.NewFromInt(50),
		Active:            true,
	})
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("create promotion SAVE10: %w", err)
	}
	return nil
}
