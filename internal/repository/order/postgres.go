package order

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

const orderColumns = `
id, user_id, subtotal_amount, discount_amount, total_amount, currency, shipping_method, shipping_address,
payment_status, order_status, external_transaction_id, promotion_code, created_at, updated_at
`

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	q := `
INSERT INTO orders (user_id, subtotal_amount, discount_amount, total_amount, currency, shipping_method,
                    shipping_address, payment_status, order_status, external_transaction_id, promotion_code)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + orderColumns
	created, err := scanOrder(r.q.QueryRow(ctx, q,
		o.UserID,
		o.SubtotalAmount,
		o.DiscountAmount,
		o.TotalAmount,
		o.Currency,
		o.ShippingMethod,
		o.ShippingAddress,
		o.PaymentStatus,
		o.OrderStatus,
		o.ExternalTransactionID,
		o.PromotionCode,
	))
	if err != nil {
		if db.IsUniqueViolation(err, "orders_external_transaction_id_key") {
			return nil, fmt.Errorf("external transaction %q already used: %w", o.ExternalTransactionID, domain.ErrConflict)
		}
		return nil, err
	}

	const lineQ = `
INSERT INTO order_lines (order_id, variant_id, quantity, unit_price)
VALUES ($1, $2, $3, $4)
RETURNING id
`
	for _, l := range o.Lines {
		l.OrderID = created.ID
		if err := r.q.QueryRow(ctx, lineQ, created.ID, l.VariantID, l.Quantity, l.UnitPrice).Scan(&l.ID); err != nil {
			return nil, err
		}
		created.Lines = append(created.Lines, l)
	}

	const payQ = `
INSERT INTO payments (order_id, amount, currency, payment_status, external_transaction_id)
VALUES ($1, $2, $3, $4, $5)
`
	if _, err := r.q.Exec(ctx, payQ, created.ID, created.TotalAmount, created.Currency, created.PaymentStatus, created.ExternalTransactionID); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *postgresRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE external_transaction_id = $1`, externalID)
}

func (r *postgresRepo) getOne(ctx context.Context, q string, arg any) (*domain.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, q, arg))
	if err != nil {
		return nil, err
	}
	if o.Lines, err = r.lines(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error) {
	q := `SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`
	rows, err := r.q.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].Lines, err = r.lines(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *postgresRepo) lines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	const q = `
SELECT id, order_id, variant_id, quantity, unit_price
FROM order_lines
WHERE order_id = $1
ORDER BY id
`
	rows, err := r.q.Query(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.VariantID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *postgresRepo) GetPayment(ctx context.Context, orderID int64) (*domain.Payment, error) {
	const q = `
SELECT id, order_id, amount, currency, payment_status, external_transaction_id, updated_at
FROM payments
WHERE order_id = $1
`
	var p domain.Payment
	err := r.q.QueryRow(ctx, q, orderID).Scan(&p.ID, &p.OrderID, &p.Amount, &p.Currency, &p.Status, &p.ExternalTransactionID, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id int64, from, to domain.OrderStatus) (bool, error) {
	const q = `
UPDATE orders
SET order_status = $3, updated_at = now()
WHERE id = $1 AND order_status = $2
`
	cmd, err := r.q.Exec(ctx, q, id, from, to)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *postgresRepo) SettlePayment(ctx context.Context, externalID string, from domain.OrderStatus, payment domain.PaymentStatus, to domain.OrderStatus) (*domain.Order, bool, error) {
	q := `
UPDATE orders
SET payment_status = $3, order_status = $4, updated_at = now()
WHERE external_transaction_id = $1 AND payment_status = 'pending' AND order_status = $2
RETURNING ` + orderColumns
	o, err := scanOrder(r.q.QueryRow(ctx, q, externalID, from, payment, to))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	const payQ = `
UPDATE payments
SET payment_status = $2, updated_at = now()
WHERE order_id = $1
`
	if _, err := r.q.Exec(ctx, payQ, o.ID, payment); err != nil {
		return nil, false, err
	}
	if o.Lines, err = r.lines(ctx, o.ID); err != nil {
		return nil, false, err
	}
	return o, true, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.SubtotalAmount,
		&o.DiscountAmount,
		&o.TotalAmount,
		&o.Currency,
		&o.ShippingMethod,
		&o.ShippingAddress,
		&o.PaymentStatus,
		&o.OrderStatus,
		&o.ExternalTransactionID,
		&o.PromotionCode,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}
