package order

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/repository"
	cartrepo "storefront/internal/repository/cart"
	inventoryrepo "storefront/internal/repository/inventory"
	orderrepo "storefront/internal/repository/order"
	promotionrepo "storefront/internal/repository/promotion"
	variantrepo "storefront/internal/repository/variant"
	"storefront/internal/service/cart"
	"storefront/internal/service/inventory"
	"storefront/internal/service/promotion"
	"storefront/internal/testutil/pgtest"
)

// waitForLockWaiters polls until n sessions are blocked on a lock or the
// deadline passes.
func waitForLockWaiters(ctx context.Context, t *testing.T, pool *pgxpool.Pool, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var waiting int
		err := pool.QueryRow(ctx, `
SELECT count(*) FROM pg_stat_activity
WHERE datname = current_database() AND wait_event_type = 'Lock'
`).Scan(&waiting)
		require.NoError(t, err)
		if waiting >= n {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestPlaceOrderHoldsCartAgainstConcurrentEdits(t *testing.T) {
	pool := pgtest.Pool(t)
	ctx := context.Background()

	tx := repository.NewTxManager(db.NewGateway(pool))
	carts := cartrepo.NewPostgres(pool)
	svc := New(Deps{
		Tx:         tx,
		Orders:     orderrepo.NewPostgres(pool),
		Carts:      carts,
		Promotions: promotion.New(promotionrepo.NewPostgres(pool), nil),
		Stock:      inventory.New(tx, inventoryrepo.NewPostgres(pool), nil, nil),
		Processor:  &stubProcessor{},
	})
	cartSvc := cart.New(carts, variantrepo.NewPostgres(pool, nil))

	userID := pgtest.Customer(ctx, t, pool, "devices@example.com")
	a := pgtest.Variant(ctx, t, pool, "A", "10.00", 10)
	b := pgtest.Variant(ctx, t, pool, "B", "5.00", 10)
	snapshot, err := cartSvc.AddLine(ctx, userID, cart.AddLineInput{VariantID: a, Quantity: 2})
	require.NoError(t, err)
	lineA := snapshot.Lines[0].ID

	// Hold variant A so checkout stops after it has read the cart.
	blocker, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer blocker.Rollback(ctx)
	_, err = blocker.Exec(ctx, `SELECT id FROM variants WHERE id = $1 FOR UPDATE`, a)
	require.NoError(t, err)

	type placed struct {
		order *domain.Order
		err   error
	}
	placeDone := make(chan placed, 1)
	go func() {
		o, err := svc.PlaceOrder(ctx, PlaceOrderInput{
			UserID:             userID,
			ShippingMethod:     "standard",
			ShippingAddress:    "1 Main St",
			ExternalPaymentRef: "pi_devices",
		})
		placeDone <- placed{o, err}
	}()
	waitForLockWaiters(ctx, t, pool, 1)

	addDone := make(chan error, 1)
	go func() {
		_, err := cartSvc.AddLine(ctx, userID, cart.AddLineInput{VariantID: b, Quantity: 1})
		addDone <- err
	}()
	updateDone := make(chan error, 1)
	go func() {
		_, err := cartSvc.UpdateLineQty(ctx, userID, lineA, 5)
		updateDone <- err
	}()
	waitForLockWaiters(ctx, t, pool, 3)

	require.NoError(t, blocker.Commit(ctx))

	res := <-placeDone
	require.NoError(t, res.err)
	require.Len(t, res.order.Lines, 1)
	assert.Equal(t, a, res.order.Lines[0].VariantID)
	assert.Equal(t, int64(2), res.order.Lines[0].Quantity)

	require.NoError(t, <-addDone)
	assert.ErrorIs(t, <-updateDone, domain.ErrNotFound, "the edited line was already checked out")

	after, err := cartSvc.GetLines(ctx, userID)
	require.NoError(t, err)
	require.Len(t, after.Lines, 1, "a line added during checkout survives it")
	assert.Equal(t, b, after.Lines[0].VariantID)
	assert.Equal(t, int64(1), after.Lines[0].Quantity)
}
