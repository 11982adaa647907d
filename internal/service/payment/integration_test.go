package payment

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/repository"
	cartrepo "storefront/internal/repository/cart"
	inventoryrepo "storefront/internal/repository/inventory"
	orderrepo "storefront/internal/repository/order"
	promotionrepo "storefront/internal/repository/promotion"
	variantrepo "storefront/internal/repository/variant"
	"storefront/internal/service/cart"
	"storefront/internal/service/inventory"
	"storefront/internal/service/order"
	"storefront/internal/service/promotion"
	"storefront/internal/testutil/pgtest"
)

// TestCheckoutAgainstPostgres runs the checkout flow on real row locks:
// concurrent buyers race for limited stock, then payment webhooks arrive
// more than once and concurrently.
func TestCheckoutAgainstPostgres(t *testing.T) {
	pool := pgtest.Pool(t)
	ctx := context.Background()

	rec := &recordingNotifier{}
	disp := notify.NewDispatcher(rec, zap.NewNop())
	tx := repository.NewTxManager(db.NewGateway(pool))
	carts := cartrepo.NewPostgres(pool)
	inv := inventory.New(tx, inventoryrepo.NewPostgres(pool), disp, nil)
	orders := order.New(order.Deps{
		Tx:         tx,
		Orders:     orderrepo.NewPostgres(pool),
		Carts:      carts,
		Promotions: promotion.New(promotionrepo.NewPostgres(pool), nil),
		Stock:      inv,
		Processor:  stubProcessor{},
		Dispatcher: disp,
	})
	cartSvc := cart.New(carts, variantrepo.NewPostgres(pool, nil))
	payments := New(tx, stubProcessor{}, inv, disp, nil)

	variantID := pgtest.Variant(ctx, t, pool, "LIMITED", "10.00", 5)

	const buyers = 12
	users := make([]int64, buyers)
	for i := range users {
		users[i] = pgtest.Customer(ctx, t, pool, fmt.Sprintf("buyer%d@example.com", i))
		_, err := cartSvc.AddLine(ctx, users[i], cart.AddLineInput{VariantID: variantID, Quantity: 1})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	placed := make([]*domain.Order, buyers)
	errs := make([]error, buyers)
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			placed[i], errs[i] = orders.PlaceOrder(ctx, order.PlaceOrderInput{
				UserID:             users[i],
				ShippingMethod:     "standard",
				ShippingAddress:    "1 Main St",
				ExternalPaymentRef: fmt.Sprintf("pi_%d", i),
			})
		}(i)
	}
	wg.Wait()

	var won []*domain.Order
	for i, err := range errs {
		if err == nil {
			won = append(won, placed[i])
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	}
	require.Len(t, won, 5)

	stock, err := inv.GetStock(ctx, variantID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock)

	var sum int64
	require.NoError(t, pool.QueryRow(ctx, `SELECT COALESCE(SUM(delta), 0) FROM stock_movements WHERE variant_id = $1`, variantID).Scan(&sum))
	assert.Equal(t, int64(-5), sum)

	// The same success event delivered four times at once settles once.
	paid := won[0]
	outcomes := make([]Outcome, 4)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := payments.HandleWebhook(ctx, []byte("payment_intent.succeeded|"+paid.ExternalTransactionID+"|10.00|usd"), "ok")
			if assert.NoError(t, err) {
				outcomes[i] = res.Outcome
			}
		}(i)
	}
	wg.Wait()
	applied := 0
	for _, o := range outcomes {
		if o == OutcomeApplied {
			applied++
		} else {
			assert.Equal(t, OutcomeDuplicate, o)
		}
	}
	assert.Equal(t, 1, applied)

	got, err := orders.Get(ctx, paid.UserID, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, domain.OrderPaid, got.OrderStatus)

	// A failed payment cancels its order and puts the stock back, once.
	failed := won[1]
	for i := 0; i < 2; i++ {
		_, err := payments.HandleWebhook(ctx, []byte("payment_intent.payment_failed|"+failed.ExternalTransactionID), "ok")
		require.NoError(t, err)
	}
	stock, err = inv.GetStock(ctx, variantID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stock)

	got, err = orders.Get(ctx, failed.UserID, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.OrderStatus)
	assert.Equal(t, domain.PaymentFailed, got.PaymentStatus)

	disp.Wait()
}
