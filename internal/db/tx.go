package db

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxRetries = 3
	baseBackoff       = 50 * time.Millisecond
)

// Gateway scopes units of work to a single transaction.
type Gateway struct {
	pool       *pgxpool.Pool
	maxRetries int
}

func NewGateway(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool, maxRetries: defaultMaxRetries}
}

// Pool exposes the underlying pool for read paths that need no transaction.
func (g *Gateway) Pool() *pgxpool.Pool {
	return g.pool
}

// WithinTx runs fn inside a read-committed transaction. The transaction is
// rolled back on every path that does not commit. Serialization failures and
// deadlocks re-run fn from scratch with jittered exponential backoff, so fn
// must not have side effects outside the transaction.
func (g *Gateway) WithinTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	backoff := baseBackoff
	for attempt := 0; ; attempt++ {
		err := g.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt >= g.maxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", g.maxRetries, err)
		}

		jitter := time.Duration(rand.Int63n(int64(backoff / 4)))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

func (g *Gateway) runOnce(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := g.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
