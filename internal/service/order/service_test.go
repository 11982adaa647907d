package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/processor"
	"storefront/internal/repository/memory"
	"storefront/internal/service/cart"
	"storefront/internal/service/inventory"
	"storefront/internal/service/promotion"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingNotifier) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Kind)
	}
	return out
}

type stubProcessor struct {
	lastAmount   decimal.Decimal
	lastCurrency string
	err          error
}

func (p *stubProcessor) CreatePaymentIntent(_ context.Context, amount decimal.Decimal, currency string, _ map[string]string) (*processor.Intent, error) {
	p.lastAmount = amount
	p.lastCurrency = currency
	if p.err != nil {
		return nil, p.err
	}
	return &processor.Intent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

func (p *stubProcessor) ParseEvent(_ []byte, _ string) (*processor.Event, error) {
	return nil, errors.New("not used")
}

type harness struct {
	store *memory.Store
	svc   *Service
	carts *cart.Service
	inv   *inventory.Service
	proc  *stubProcessor
	rec   *recordingNotifier
	disp  *notify.Dispatcher
	user  domain.Customer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	rec := &recordingNotifier{}
	disp := notify.NewDispatcher(rec, zap.NewNop())
	inv := inventory.New(store, store.Inventory(), disp, zap.NewNop())
	proc := &stubProcessor{}
	svc := New(Deps{
		Tx:         store,
		Orders:     store.Orders(),
		Carts:      store.Carts(),
		Promotions: promotion.New(store.Promotions(), nil),
		Stock:      inv,
		Processor:  proc,
		Dispatcher: disp,
		Currency:   "USD",
		Logger:     zap.NewNop(),
	})
	return &harness{
		store: store,
		svc:   svc,
		carts: cart.New(store.Carts(), store.Variants()),
		inv:   inv,
		proc:  proc,
		rec:   rec,
		disp:  disp,
		user:  store.AddCustomer("buyer@example.com", domain.RoleCustomer),
	}
}

func (h *harness) add(t *testing.T, userID, variantID, qty int64) {
	t.Helper()
	_, err := h.carts.AddLine(context.Background(), userID, cart.AddLineInput{VariantID: variantID, Quantity: qty})
	require.NoError(t, err)
}

func input(userID int64, ref string) PlaceOrderInput {
	return PlaceOrderInput{
		UserID:             userID,
		ShippingMethod:     "standard",
		ShippingAddress:    "1 Main St, Springfield",
		ExternalPaymentRef: ref,
	}
}

func TestPlaceOrderHappyPath(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.store.AddVariant("A", "10.00", 5)
	b := h.store.AddVariant("B", "25.00", 5)
	h.add(t, h.user.ID, a.ID, 2)
	h.add(t, h.user.ID, b.ID, 1)

	o, err := h.svc.PlaceOrder(ctx, input(h.user.ID, "pi_1"))
	require.NoError(t, err)
	h.disp.Wait()

	assert.Equal(t, "45.00", o.TotalAmount.StringFixed(2))
	assert.Equal(t, "45.00", o.SubtotalAmount.StringFixed(2))
	assert.True(t, o.DiscountAmount.IsZero())
	assert.Equal(t, domain.PaymentPending, o.PaymentStatus)
	assert.Equal(t, domain.OrderProcessing, o.OrderStatus)
	assert.Equal(t, "usd", o.Currency)
	require.Len(t, o.Lines, 2)

	assert.Equal(t, int64(3), h.store.Stock(a.ID))
	assert.Equal(t, int64(4), h.store.Stock(b.ID))

	movA, err := h.inv.ListMovements(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, movA, 1)
	assert.Equal(t, int64(-2), movA[0].Delta)
	assert.Equal(t, domain.MovementSale, movA[0].Type)
	movB, err := h.inv.ListMovements(ctx, b.ID, 10)
	require.NoError(t, err)
	require.Len(t, movB, 1)
	assert.Equal(t, int64(-1), movB[0].Delta)

	c, err := h.carts.GetLines(ctx, h.user.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Lines)

	pay, err := h.store.Orders().GetPayment(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, pay.Amount.Equal(o.TotalAmount))

	assert.Equal(t, []notify.Kind{notify.KindOrderConfirmation}, h.rec.kinds())
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.store.AddVariant("A", "10.00", 5)
	b := h.store.AddVariant("B", "25.00", 1)
	h.add(t, h.user.ID, a.ID, 2)
	h.add(t, h.user.ID, b.ID, 2)

	_, err := h.svc.PlaceOrder(ctx, input(h.user.ID, "pi_1"))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, int64(5), h.store.Stock(a.ID))
	assert.Equal(t, int64(1), h.store.Stock(b.ID))
	assert.Zero(t, h.store.MovementCount())
	_, err = h.store.Orders().GetByExternalID(ctx, "pi_1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	c, err := h.carts.GetLines(ctx, h.user.ID)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2)
}

func TestPlaceOrderValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.PlaceOrder(ctx, input(h.user.ID, "pi_1"))
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in := input(h.user.ID, "pi_1")
	in.ShippingAddress = " "
	_, err = h.svc.PlaceOrder(ctx, in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	in = input(h.user.ID, "")
	_, err = h.svc.PlaceOrder(ctx, in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPlaceOrderReusedReferenceConflicts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.store.AddVariant("A", "10.00", 5)
	h.add(t, h.user.ID, a.ID, 1)
	_, err := h.svc.PlaceOrder(ctx, input(h.user.ID, "pi_1"))
	require.NoError(t, err)

	h.add(t, h.user.ID, a.ID, 1)
	_, err = h.svc.PlaceOrder(ctx, input(h.user.ID, "pi_1"))
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, int64(4), h.store.Stock(a.ID))
}

func TestPlaceOrderCapturesPrice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.store.AddVariant("A", "10.00", 5)
	h.add(t, h.user.ID, a.ID, 1)

	o, err := h.svc.PlaceOrder(ctx, input(h.user.ID, "pi_1"))
	require.NoError(t, err)
	require.NoError(t, h.store.Variants().UpdatePrice(ctx, a.ID, decimal.RequireFromString("99.00")))

	got, err := h.svc.Get(ctx, h.user.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.Lines[0].UnitPrice.StringFixed(2))
}

func TestPlaceOrderWithPromotion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.store.AddVariant("A", "50.00", 10)
	h.store.AddPromotion(domain.Promotion{
		Code:              "SAVE10",
		DiscountType:      domain.DiscountPercentage,
		Rate:              decimal.NewFromInt(10),
		MinimumOrderValue: decimal.NewFromInt(50),
		Active:            true,
	})
	h.add(t, h.user.ID, a.ID, 2)

	in := input(h.user.ID, "pi_1")
	in.PromotionCode = "save10"
	o, err := h.svc.PlaceOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "100.00", o.SubtotalAmount.StringFixed(2))
	assert.Equal(t, "10.00", o.DiscountAmount.StringFixed(2))
	assert.Equal(t, "90.00", o.TotalAmount.StringFixed(2))
	assert.Equal(t, "SAVE10", o.PromotionCode)

	promo, err := h.store.Promotions().GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, int64(1), promo.UsageCount)

	h.add(t, h.user.ID, a.ID, 2)
	in.ExternalPaymentRef = "pi_2"
	_, err = h.svc.PlaceOrder(ctx, in)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), promotion.ReasonAlreadyRedeemed)
	assert.Equal(t, int64(8), h.store.Stock(a.ID))
}

func TestConcurrentPlaceOrderNeverOversells(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.store.AddVariant("A", "10.00", 5)

	const buyers = 12
	users := make([]domain.Customer, buyers)
	for i := range users {
		users[i] = h.store.AddCustomer("buyer"+string(rune('a'+i))+"@example.com", domain.RoleCustomer)
		h.add(t, users[i].ID, a.ID, 1)
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.PlaceOrder(ctx, input(users[i].ID, "pi_"+string(rune('a'+i))))
		}(i)
	}
	wg.Wait()

	placed := 0
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	}
	assert.Equal(t, 5, placed)
	assert.Equal(t, int64(0), h.store.Stock(a.ID))
}

func TestTransitionStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.store.AddVariant("A", "10.00", 2)
	h.add(t, h.user.ID, a.ID, 2)
	o, err := h.svc.PlaceOrder(ctx, input(h.user.ID, "pi_1"))
	require.NoError(t, err)
	require.Equal(t, int64(0), h.store.Stock(a.ID))

	_, err = h.svc.TransitionStatus(ctx, o.ID, domain.OrderShipped, "admin:1")
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = h.svc.TransitionStatus(ctx, o.ID, "lost", "admin:1")
	require.ErrorIs(t, err, domain.ErrValidation)

	updated, err := h.svc.TransitionStatus(ctx, o.ID, domain.OrderCancelled, "admin:1")
	require.NoError(t, err)
	h.disp.Wait()
	assert.Equal(t, domain.OrderCancelled, updated.OrderStatus)
	assert.Equal(t, int64(2), h.store.Stock(a.ID))

	moves, err := h.inv.ListMovements(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, moves, 2)
	assert.Equal(t, domain.MovementReturn, moves[0].Type)
	assert.Equal(t, int64(2), moves[0].Delta)
	assert.Equal(t, "admin:1", moves[0].Actor)

	assert.ElementsMatch(t, []notify.Kind{
		notify.KindOrderConfirmation,
		notify.KindBackInStock,
		notify.KindOrderStatusChange,
	}, h.rec.kinds())

	_, err = h.svc.TransitionStatus(ctx, o.ID, domain.OrderRefunded, "admin:1")
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, int64(2), h.store.Stock(a.ID))

	_, err = h.svc.TransitionStatus(ctx, 999, domain.OrderPaid, "admin:1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetAndListScopedToUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	other := h.store.AddCustomer("other@example.com", domain.RoleCustomer)
	a := h.store.AddVariant("A", "10.00", 5)
	h.add(t, h.user.ID, a.ID, 1)
	o, err := h.svc.PlaceOrder(ctx, input(h.user.ID, "pi_1"))
	require.NoError(t, err)

	_, err = h.svc.Get(ctx, other.ID, o.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mine, err := h.svc.ListByUser(ctx, h.user.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	theirs, err := h.svc.ListByUser(ctx, other.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestCreatePaymentIntent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.store.AddVariant("A", "60.00", 5)
	h.store.AddPromotion(domain.Promotion{Code: "FIVE", DiscountType: domain.DiscountFixedAmount, Rate: decimal.NewFromInt(5), Active: true})

	_, err := h.svc.CreatePaymentIntent(ctx, h.user.ID, "")
	require.ErrorIs(t, err, domain.ErrEmptyCart)

	h.add(t, h.user.ID, a.ID, 1)
	intent, err := h.svc.CreatePaymentIntent(ctx, h.user.ID, "five")
	require.NoError(t, err)
	assert.Equal(t, "pi_test", intent.ExternalTransactionID)
	assert.Equal(t, "55.00", intent.Amount.StringFixed(2))
	assert.Equal(t, "usd", h.proc.lastCurrency)

	_, err = h.svc.CreatePaymentIntent(ctx, h.user.ID, "missing")
	require.ErrorIs(t, err, domain.ErrValidation)

	h.proc.err = errors.New("processor down")
	_, err = h.svc.CreatePaymentIntent(ctx, h.user.ID, "")
	require.ErrorIs(t, err, domain.ErrExternalService)
}
