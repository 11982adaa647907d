package cart

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

func (r *postgresRepo) Ensure(ctx context.Context, userID int64) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id, user_id, created_at
`
	var c domain.Cart
	if err := r.q.QueryRow(ctx, q, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt); err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepo) UpsertLine(ctx context.Context, cartID, variantID, qty int64) (*domain.CartLine, error) {
	const q = `
INSERT INTO cart_lines (cart_id, variant_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, variant_id) DO UPDATE
SET quantity = cart_lines.quantity + EXCLUDED.quantity
RETURNING id, cart_id, variant_id, quantity, created_at
`
	var l domain.CartLine
	if err := r.q.QueryRow(ctx, q, cartID, variantID, qty).Scan(&l.ID, &l.CartID, &l.VariantID, &l.Quantity, &l.CreatedAt); err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("variant %d: %w", variantID, domain.ErrNotFound)
		}
		return nil, err
	}
	return &l, nil
}

func (r *postgresRepo) Lines(ctx context.Context, userID int64) ([]domain.CartLine, error) {
	const q = `
SELECT l.id, l.cart_id, l.variant_id, l.quantity, v.sku, v.name, v.price,
       COALESCE((SELECT array_agg(vc.category_id ORDER BY vc.category_id) FROM variant_categories vc WHERE vc.variant_id = v.id), '{}'),
       l.created_at
FROM cart_lines l
JOIN carts c ON c.id = l.cart_id
JOIN variants v ON v.id = l.variant_id
WHERE c.user_id = $1
ORDER BY l.id
`
	rows, err := r.q.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.CartLine, 0)
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ID, &l.CartID, &l.VariantID, &l.Quantity, &l.SKU, &l.Name, &l.UnitPrice, &l.CategoryIDs, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *postgresRepo) UpdateLineQty(ctx context.Context, userID, lineID, qty int64) error {
	const q = `
UPDATE cart_lines
SET quantity = $3
WHERE id = $2 AND cart_id = (SELECT id FROM carts WHERE user_id = $1 FOR SHARE)
RETURNING id
`
	var id int64
	if err := r.q.QueryRow(ctx, q, userID, lineID, qty).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *postgresRepo) DeleteLine(ctx context.Context, userID, lineID int64) error {
	const q = `
DELETE FROM cart_lines
WHERE id = $2 AND cart_id = (SELECT id FROM carts WHERE user_id = $1 FOR SHARE)
`
	cmd, err := r.q.Exec(ctx, q, userID, lineID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Lock takes the cart row and its lines FOR UPDATE. New lines wait on the
// cart row through their foreign key check; increments wait on the line.
func (r *postgresRepo) Lock(ctx context.Context, userID int64) error {
	var cartID int64
	err := r.q.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `SELECT id FROM cart_lines WHERE cart_id = $1 ORDER BY id FOR UPDATE`, cartID)
	return err
}

func (r *postgresRepo) Clear(ctx context.Context, userID int64) (int64, error) {
	const q = `
DELETE FROM cart_lines l
USING carts c
WHERE l.cart_id = c.id AND c.user_id = $1
`
	cmd, err := r.q.Exec(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
