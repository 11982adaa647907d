package variant

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	q      db.Querier
	logger *zap.Logger
}

func NewPostgres(q db.Querier, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{q: q, logger: logger}
}

const selectVariant = `
SELECT v.id, v.product_id, v.sku, v.name, v.price, v.weight_grams, v.quantity_in_stock,
       COALESCE(array_agg(vc.category_id ORDER BY vc.category_id) FILTER (WHERE vc.category_id IS NOT NULL), '{}'),
       v.created_at
FROM variants v
LEFT JOIN variant_categories vc ON vc.variant_id = v.id
`

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Variant, error) {
	const q = selectVariant + `WHERE v.id = $1 GROUP BY v.id`
	v, err := scanVariant(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error("variant repo: get", zap.Int64("id", id), zap.Error(err))
		}
		return nil, err
	}
	return v, nil
}

func (r *postgresRepo) GetBySKU(ctx context.Context, sku string) (*domain.Variant, error) {
	const q = selectVariant + `WHERE v.sku = $1 GROUP BY v.id`
	return scanVariant(r.q.QueryRow(ctx, q, sku))
}

func (r *postgresRepo) List(ctx context.Context, limit, offset int) ([]domain.Variant, error) {
	const q = selectVariant + `GROUP BY v.id ORDER BY v.id LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Variant, 0)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("variant repo: list", zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) LockForUpdate(ctx context.Context, ids []int64) ([]domain.Variant, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	// FOR UPDATE cannot be combined with GROUP BY, so categories are loaded
	// in a second statement once the rows are held.
	const q = `
SELECT id, product_id, sku, name, price, weight_grams, quantity_in_stock, created_at
FROM variants
WHERE id = ANY($1)
ORDER BY id
FOR UPDATE
`
	rows, err := r.q.Query(ctx, q, sorted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locked := make([]domain.Variant, 0, len(sorted))
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.Price, &v.WeightGrams, &v.QuantityInStock, &v.CreatedAt); err != nil {
			return nil, err
		}
		locked = append(locked, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(locked) != len(sorted) {
		return nil, fmt.Errorf("lock variants: %w", domain.ErrNotFound)
	}

	cats, err := r.categoriesFor(ctx, sorted)
	if err != nil {
		return nil, err
	}
	for i := range locked {
		locked[i].CategoryIDs = cats[locked[i].ID]
	}
	return locked, nil
}

func (r *postgresRepo) categoriesFor(ctx context.Context, ids []int64) (map[int64][]int64, error) {
	const q = `
SELECT variant_id, category_id
FROM variant_categories
WHERE variant_id = ANY($1)
ORDER BY variant_id, category_id
`
	rows, err := r.q.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]int64, len(ids))
	for rows.Next() {
		var variantID, categoryID int64
		if err := rows.Scan(&variantID, &categoryID); err != nil {
			return nil, err
		}
		out[variantID] = append(out[variantID], categoryID)
	}
	return out, rows.Err()
}

func (r *postgresRepo) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (name, description)
VALUES ($1, $2)
RETURNING id, created_at
`
	out := p
	if err := r.q.QueryRow(ctx, q, p.Name, p.Description).Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Variant, error) {
	const q = `
INSERT INTO variants (product_id, sku, name, price, weight_grams)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at
`
	v := domain.Variant{
		ProductID:   in.ProductID,
		SKU:         in.SKU,
		Name:        in.Name,
		Price:       in.Price.Round(2),
		WeightGrams: in.WeightGrams,
	}
	if err := r.q.QueryRow(ctx, q, in.ProductID, in.SKU, in.Name, v.Price, in.WeightGrams).Scan(&v.ID, &v.CreatedAt); err != nil {
		if db.IsUniqueViolation(err, "variants_sku_key") {
			return nil, fmt.Errorf("sku %q: %w", in.SKU, domain.ErrAlreadyExists)
		}
		if db.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("product %d: %w", in.ProductID, domain.ErrNotFound)
		}
		return nil, err
	}

	const link = `
INSERT INTO variant_categories (variant_id, category_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`
	for _, categoryID := range in.CategoryIDs {
		if _, err := r.q.Exec(ctx, link, v.ID, categoryID); err != nil {
			return nil, err
		}
		v.CategoryIDs = append(v.CategoryIDs, categoryID)
	}
	r.logger.Info("variant repo: created", zap.Int64("id", v.ID), zap.String("sku", v.SKU))
	return &v, nil
}

func (r *postgresRepo) UpdatePrice(ctx context.Context, id int64, price decimal.Decimal) error {
	cmd, err := r.q.Exec(ctx, `UPDATE variants SET price = $1 WHERE id = $2`, price.Round(2), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanVariant(row pgx.Row) (*domain.Variant, error) {
	var v domain.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.Price, &v.WeightGrams, &v.QuantityInStock, &v.CategoryIDs, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}
