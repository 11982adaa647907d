package variant

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type CreateInput struct {
	ProductID   int64
	SKU         string
	Name        string
	Price       decimal.Decimal
	WeightGrams int64
	CategoryIDs []int64
}

// Repository reads and writes catalog variants. Stock is never written here;
// it belongs to the inventory ledger.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Variant, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Variant, error)
	List(ctx context.Context, limit, offset int) ([]domain.Variant, error)
	// LockForUpdate row-locks the given variants in ascending id order and
	// returns them in that order. Missing ids yield domain.ErrNotFound.
	LockForUpdate(ctx context.Context, ids []int64) ([]domain.Variant, error)
	CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	Create(ctx context.Context, in CreateInput) (*domain.Variant, error)
	UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error
}
