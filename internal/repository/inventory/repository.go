package inventory

import (
	"context"

	"storefront/internal/domain"
)

// Repository is the storage side of the stock ledger. Callers are expected
// to run LockQuantity, SetQuantity and AppendMovement in one transaction.
type Repository interface {
	LockQuantity(ctx context.Context, variantID int64) (int64, error)
	SetQuantity(ctx context.Context, variantID, qty int64) error
	AppendMovement(ctx context.Context, m domain.StockMovement) (*domain.StockMovement, error)
	ListMovements(ctx context.Context, variantID int64, limit int) ([]domain.StockMovement, error)
	Quantity(ctx context.Context, variantID int64) (int64, error)
}
