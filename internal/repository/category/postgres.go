package category

import (
	"context"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	q db.Querier
}

func NewPostgres(q db.Querier) Repository {
	return &postgresRepo{q: q}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Category, error) {
	const q = `
SELECT id, name, slug, created_at
FROM categories
ORDER BY name ASC
`
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Upsert inserts a category keyed by slug, or renames the existing one.
func (r *postgresRepo) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const q = `
INSERT INTO categories (name, slug)
VALUES ($1, $2)
ON CONFLICT (slug) DO UPDATE
SET name = EXCLUDED.name
RETURNING id, created_at
`
	out := c
	if err := r.q.QueryRow(ctx, q, c.Name, c.Slug).Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}
