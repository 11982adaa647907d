package promotion

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	q db.Querier
}

func NewPostgres(q db.Querier) Repository {
	return &postgresRepo{q: q}
}

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	const q = `
SELECT p.id, p.code, p.discount_type, p.rate, p.starts_at, p.ends_at, p.minimum_order_value,
       p.usage_limit, p.usage_count, p.active,
       COALESCE((SELECT array_agg(pc.category_id ORDER BY pc.category_id) FROM promotion_categories pc WHERE pc.promotion_id = p.id), '{}'),
       p.created_at
FROM promotions p
WHERE upper(p.code) = $1
`
	var p domain.Promotion
	err := r.q.QueryRow(ctx, q, domain.NormalizeCode(code)).Scan(
		&p.ID,
		&p.Code,
		&p.DiscountType,
		&p.Rate,
		&p.StartsAt,
		&p.EndsAt,
		&p.MinimumOrderValue,
		&p.UsageLimit,
		&p.UsageCount,
		&p.Active,
		&p.ApplicableCategories,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Promotion) (*domain.Promotion, error) {
	const q = `
INSERT INTO promotions (code, discount_type, rate, starts_at, ends_at, minimum_order_value, usage_limit, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, usage_count, created_at
`
	out := p
	out.Code = domain.NormalizeCode(p.Code)
	err := r.q.QueryRow(ctx, q,
		out.Code,
		p.DiscountType,
		p.Rate,
		p.StartsAt,
		p.EndsAt,
		p.MinimumOrderValue,
		p.UsageLimit,
		p.Active,
	).Scan(&out.ID, &out.UsageCount, &out.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "promotions_code_key") {
			return nil, fmt.Errorf("promotion %q: %w", out.Code, domain.ErrAlreadyExists)
		}
		return nil, err
	}

	const link = `INSERT INTO promotion_categories (promotion_id, category_id) VALUES ($1, $2)`
	for _, c := range p.ApplicableCategories {
		if _, err := r.q.Exec(ctx, link, out.ID, c); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func (r *postgresRepo) HasUsage(ctx context.Context, promotionID, userID int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM promotion_usages WHERE promotion_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.q.QueryRow(ctx, q, promotionID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresRepo) RecordUsage(ctx context.Context, u domain.PromotionUsage) (*domain.PromotionUsage, error) {
	const q = `
INSERT INTO promotion_usages (promotion_id, user_id, order_id)
VALUES ($1, $2, $3)
RETURNING id, created_at
`
	out := u
	if err := r.q.QueryRow(ctx, q, u.PromotionID, u.UserID, u.OrderID).Scan(&out.ID, &out.CreatedAt); err != nil {
		if db.IsUniqueViolation(err, "promotion_usages_promotion_user_key") {
			return nil, fmt.Errorf("promotion already redeemed: %w", domain.ErrConflict)
		}
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) IncrementUsage(ctx context.Context, promotionID int64) error {
	const q = `
UPDATE promotions
SET usage_count = usage_count + 1
WHERE id = $1 AND (usage_limit = 0 OR usage_count < usage_limit)
`
	cmd, err := r.q.Exec(ctx, q, promotionID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("promotion usage limit reached: %w", domain.ErrConflict)
	}
	return nil
}
