package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists carts and their lines. Line reads join the live
// variant so prices are never served from a stale snapshot.
type Repository interface {
	// Ensure returns the user's cart, creating it if absent.
	Ensure(ctx context.Context, userID int64) (*domain.Cart, error)
	// UpsertLine adds qty to the (cart, variant) line, inserting it if needed.
	UpsertLine(ctx context.Context, cartID, variantID, qty int64) (*domain.CartLine, error)
	Lines(ctx context.Context, userID int64) ([]domain.CartLine, error)
	UpdateLineQty(ctx context.Context, userID, lineID, qty int64) error
	DeleteLine(ctx context.Context, userID, lineID int64) error
	// Lock row-locks the user's cart until the transaction ends, holding off
	// line writes from other sessions. A user without a cart is not an error.
	Lock(ctx context.Context, userID int64) error
	// Clear removes every line of the user's cart and reports how many went.
	Clear(ctx context.Context, userID int64) (int64, error)
}
