package inventory

import (
	"context"
	"errors"

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

func (r *postgresRepo) LockQuantity(ctx context.Context, variantID int64) (int64, error) {
	const q = `SELECT quantity_in_stock FROM variants WHERE id = $1 FOR UPDATE`
	return r.scanQuantity(ctx, q, variantID)
}

func (r *postgresRepo) Quantity(ctx context.Context, variantID int64) (int64, error) {
	const q = `SELECT quantity_in_stock FROM variants WHERE id = $1`
	return r.scanQuantity(ctx, q, variantID)
}

func (r *postgresRepo) scanQuantity(ctx context.Context, q string, variantID int64) (int64, error) {
	var qty int64
	if err := r.q.QueryRow(ctx, q, variantID).Scan(&qty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return qty, nil
}

func (r *postgresRepo) SetQuantity(ctx context.Context, variantID, qty int64) error {
	cmd, err := r.q.Exec(ctx, `UPDATE variants SET quantity_in_stock = $1 WHERE id = $2`, qty, variantID)
	if err != nil {
		if db.IsCheckViolation(err) {
			return domain.ErrInsufficientStock
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) AppendMovement(ctx context.Context, m domain.StockMovement) (*domain.StockMovement, error) {
	const q = `
INSERT INTO stock_movements (variant_id, movement_type, delta, quantity_before, quantity_after, reference_id, reason, actor)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at
`
	out := m
	err := r.q.QueryRow(ctx, q,
		m.VariantID,
		m.Type,
		m.Delta,
		m.QuantityBefore,
		m.QuantityAfter,
		m.ReferenceID,
		m.Reason,
		m.Actor,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) ListMovements(ctx context.Context, variantID int64, limit int) ([]domain.StockMovement, error) {
	const q = `
SELECT id, variant_id, movement_type, delta, quantity_before, quantity_after, reference_id, reason, actor, created_at
FROM stock_movements
WHERE variant_id = $1
ORDER BY id DESC
LIMIT $2
`
	rows, err := r.q.Query(ctx, q, variantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.StockMovement, 0)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.VariantID, &m.Type, &m.Delta, &m.QuantityBefore, &m.QuantityAfter, &m.ReferenceID, &m.Reason, &m.Actor, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
