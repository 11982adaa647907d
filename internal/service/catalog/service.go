package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/repository/category"
	"storefront/internal/repository/variant"
)

type Service struct {
	tx         repository.TxManager
	variants   variant.Repository
	categories category.Repository
}

func New(tx repository.TxManager, variants variant.Repository, categories category.Repository) *Service {
	return &Service{tx: tx, variants: variants, categories: categories}
}

func (s *Service) ListVariants(ctx context.Context, limit, offset int) ([]domain.Variant, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.variants.List(ctx, limit, offset)
}

func (s *Service) GetVariant(ctx context.Context, id int64) (*domain.Variant, error) {
	return s.variants.GetByID(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *Service) UpsertCategory(ctx context.Context, c domain.Category) (*domain.Category, error) {
	c.Slug = strings.ToLower(strings.TrimSpace(c.Slug))
	if c.Slug == "" || strings.TrimSpace(c.Name) == "" {
		return nil, domain.Invalid("category name and slug required")
	}
	return s.categories.Upsert(ctx, c)
}

// VariantInput describes a sellable variant together with its product.
// Stock is not part of it; initial stock is booked as a restock movement.
// A non-zero ProductID attaches the variant to that product instead of
// creating a new one.
type VariantInput struct {
	ProductID   int64
	ProductName string
	Description string
	SKU         string
	Name        string
	Price       decimal.Decimal
	WeightGrams int64
	CategoryIDs []int64
}

func (in VariantInput) validate() error {
	switch {
	case strings.TrimSpace(in.SKU) == "":
		return domain.Invalid("sku required")
	case strings.TrimSpace(in.ProductName) == "":
		return domain.Invalid("product name required")
	case in.Price.IsNegative():
		return domain.Invalid("price must not be negative")
	case in.WeightGrams < 0:
		return domain.Invalid("weight must not be negative")
	}
	return nil
}

// UpsertVariant creates the product and variant for a new SKU, or reprices
// the existing variant. created reports which path was taken.
func (s *Service) UpsertVariant(ctx context.Context, in VariantInput) (v *domain.Variant, created bool, err error) {
	if err := in.validate(); err != nil {
		return nil, false, err
	}
	in.SKU = strings.TrimSpace(in.SKU)
	if in.Name == "" {
		in.Name = in.ProductName
	}
	price := in.Price.Round(2)

	err = s.tx.WithinTx(ctx, func(repos repository.TxRepos) error {
		v, created = nil, false
		existing, err := repos.Variants().GetBySKU(ctx, in.SKU)
		switch {
		case err == nil:
			if !existing.Price.Equal(price) {
				if err := repos.Variants().UpdatePrice(ctx, existing.ID, price); err != nil {
					return err
				}
				existing.Price = price
			}
			v = existing
			return nil
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		productID := in.ProductID
		if productID == 0 {
			p, err := repos.Variants().CreateProduct(ctx, domain.Product{Name: in.ProductName, Description: in.Description})
			if err != nil {
				return fmt.Errorf("create product for %s: %w", in.SKU, err)
			}
			productID = p.ID
		}
		v, err = repos.Variants().Create(ctx, variant.CreateInput{
			ProductID:   productID,
			SKU:         in.SKU,
			Name:        in.Name,
			Price:       price,
			WeightGrams: in.WeightGrams,
			CategoryIDs: in.CategoryIDs,
		})
		if err != nil {
			return fmt.Errorf("create variant %s: %w", in.SKU, err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, created, nil
}
