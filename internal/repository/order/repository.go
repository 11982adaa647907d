package order

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// Create inserts the order, its lines and its payment row.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error)
	GetPayment(ctx context.Context, orderID int64) (*domain.Payment, error)
	// UpdateStatus moves the order from one status to another. It returns
	// false when the order was no longer in the from status.
	UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus) (bool, error)
	// SettlePayment resolves a pending payment on both the order and the
	// payment row, provided the order is still in status from. It returns
	// nil, false when no row matched.
	SettlePayment(ctx context.Context, externalID string, from domain.OrderStatus, payment domain.PaymentStatus, to domain.OrderStatus) (*domain.Order, bool, error)
}
