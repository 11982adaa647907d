package customer

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	q      db.Querier
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(q db.Querier, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{q: q, logger: logger}
}

const customerColumns = `id, email, password_hash, first_name, last_name, role, created_at`

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	role := c.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	const q = `
INSERT INTO customers (email, password_hash, first_name, last_name, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + customerColumns
	return r.scanCustomer(r.q.QueryRow(ctx, q, strings.ToLower(c.Email), c.PasswordHash, c.FirstName, c.LastName, role))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const q = `
SELECT ` + customerColumns + `
FROM customers
WHERE lower(email) = lower($1)
LIMIT 1
`
	return r.scanCustomer(r.q.QueryRow(ctx, q, email))
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	const q = `
SELECT ` + customerColumns + `
FROM customers
WHERE id = $1
`
	return r.scanCustomer(r.q.QueryRow(ctx, q, id))
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Email, &c.PasswordHash, &c.FirstName, &c.LastName, &c.Role, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if db.IsUniqueViolation(err, "customers_email_key") {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("customer repo: scan", zap.Error(err))
		return nil, err
	}
	return &c, nil
}
