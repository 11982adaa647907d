package promotion

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// GetByCode looks a promotion up case-insensitively.
	GetByCode(ctx context.Context, code string) (*domain.Promotion, error)
	Create(ctx context.Context, p domain.Promotion) (*domain.Promotion, error)
	HasUsage(ctx context.Context, promotionID, userID int64) (bool, error)
	// RecordUsage fails with domain.ErrConflict if the user already redeemed.
	RecordUsage(ctx context.Context, u domain.PromotionUsage) (*domain.PromotionUsage, error)
	// IncrementUsage bumps usage_count unless the limit has been reached, in
	// which case it fails with domain.ErrConflict.
	IncrementUsage(ctx context.Context, promotionID int64) error
}
