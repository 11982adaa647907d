package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/processor"
	"storefront/internal/repository"
	cartrepo "storefront/internal/repository/cart"
	orderrepo "storefront/internal/repository/order"
	"storefront/internal/service/inventory"
	"storefront/internal/service/promotion"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type stockNotifier interface {
	NotifyBackInStock(ctx context.Context, results ...inventory.MovementResult)
}

type Deps struct {
	Tx         repository.TxManager
	Orders     orderrepo.Repository
	Carts      cartrepo.Repository
	Promotions *promotion.Service
	Stock      stockNotifier
	Processor  processor.Processor
	Dispatcher *notify.Dispatcher
	Currency   string
	Logger     *zap.Logger
}

type Service struct {
	tx         repository.TxManager
	orders     orderrepo.Repository
	carts      cartrepo.Repository
	promos     *promotion.Service
	stock      stockNotifier
	processor  processor.Processor
	dispatcher *notify.Dispatcher
	currency   string
	logger     *zap.Logger
}

func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Currency == "" {
		d.Currency = "usd"
	}
	return &Service{
		tx:         d.Tx,
		orders:     d.Orders,
		carts:      d.Carts,
		promos:     d.Promotions,
		stock:      d.Stock,
		processor:  d.Processor,
		dispatcher: d.Dispatcher,
		currency:   strings.ToLower(d.Currency),
		logger:     d.Logger,
	}
}

type PlaceOrderInput struct {
	UserID             int64  `json:"-"`
	ShippingMethod     string `json:"shippingMethod"`
	ShippingAddress    string `json:"shippingAddress"`
	ExternalPaymentRef string `json:"externalPaymentRef"`
	PromotionCode      string `json:"promotionCode,omitempty"`
}

func (in PlaceOrderInput) validate() error {
	switch {
	case strings.TrimSpace(in.ShippingMethod) == "":
		return domain.Invalid("shippingMethod required")
	case strings.TrimSpace(in.ShippingAddress) == "":
		return domain.Invalid("shippingAddress required")
	case strings.TrimSpace(in.ExternalPaymentRef) == "":
		return domain.Invalid("externalPaymentRef required")
	}
	return nil
}

// PlaceOrder converts the user's cart into an order in one transaction:
// variants are locked in ascending id order, prices are captured, stock is
// debited through the ledger, the promotion is redeemed and the cart is
// emptied. Any failure leaves no trace.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	actor := userActor(in.UserID)

	var placed *domain.Order
	err := s.tx.WithinTx(ctx, func(repos repository.TxRepos) error {
		// Held until commit so lines added or changed elsewhere are either
		// part of this snapshot or land after the cart is emptied.
		if err := repos.Carts().Lock(ctx, in.UserID); err != nil {
			return err
		}
		lines, err := repos.Carts().Lines(ctx, in.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.ErrEmptyCart
		}

		qty := make(map[int64]int64, len(lines))
		ids := make([]int64, 0, len(lines))
		for _, l := range lines {
			qty[l.VariantID] += l.Quantity
			ids = append(ids, l.VariantID)
		}
		locked, err := repos.Variants().LockForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		orderLines := make([]domain.OrderLine, 0, len(locked))
		items := make([]promotion.Item, 0, len(locked))
		for _, v := range locked {
			q := qty[v.ID]
			orderLines = append(orderLines, domain.OrderLine{VariantID: v.ID, Quantity: q, UnitPrice: v.Price})
			items = append(items, promotion.Item{VariantID: v.ID, Quantity: q, UnitPrice: v.Price, CategoryIDs: v.CategoryIDs})
			subtotal = subtotal.Add(v.Price.Mul(decimal.NewFromInt(q)))
		}

		discount := decimal.Zero
		var promo *promotion.Evaluation
		if strings.TrimSpace(in.PromotionCode) != "" {
			promo, err = s.promos.EvaluateTx(ctx, repos, in.PromotionCode, in.UserID, subtotal, items)
			if err != nil {
				return err
			}
			if !promo.Valid {
				return domain.Invalid(promo.Reason)
			}
			discount = promo.DiscountAmount
		}

		o := domain.Order{
			UserID:                in.UserID,
			Lines:                 orderLines,
			SubtotalAmount:        subtotal,
			DiscountAmount:        discount,
			TotalAmount:           subtotal.Sub(discount),
			Currency:              s.currency,
			ShippingMethod:        strings.TrimSpace(in.ShippingMethod),
			ShippingAddress:       strings.TrimSpace(in.ShippingAddress),
			PaymentStatus:         domain.PaymentPending,
			OrderStatus:           domain.OrderProcessing,
			ExternalTransactionID: strings.TrimSpace(in.ExternalPaymentRef),
		}
		if promo != nil {
			o.PromotionCode = promo.Code
		}
		created, err := repos.Orders().Create(ctx, o)
		if err != nil {
			return err
		}

		ref := strconv.FormatInt(created.ID, 10)
		for _, l := range orderLines {
			if _, err := inventory.ApplyMovementTx(ctx, repos, inventory.MovementInput{
				VariantID:   l.VariantID,
				Type:        domain.MovementSale,
				Delta:       -l.Quantity,
				ReferenceID: ref,
				Reason:      "order placed",
				Actor:       actor,
			}); err != nil {
				return err
			}
		}

		if promo != nil {
			if err := s.promos.Apply(ctx, repos, promo.PromotionID, in.UserID, created.ID); err != nil {
				return err
			}
		}

		if _, err := repos.Carts().Clear(ctx, in.UserID); err != nil {
			return err
		}
		placed = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.Int64("order_id", placed.ID),
		zap.Int64("user_id", placed.UserID),
		zap.String("total", placed.TotalAmount.StringFixed(2)),
	)
	s.dispatcher.Dispatch(ctx, notify.Message{
		Kind:      notify.KindOrderConfirmation,
		Recipient: userActor(placed.UserID),
		Payload: map[string]any{
			"orderId": placed.ID,
			"total":   placed.TotalAmount.StringFixed(2),
		},
	})
	return placed, nil
}

// TransitionStatus moves an order along its lifecycle. Entering cancelled or
// refunded returns the ordered quantities to stock.
func (s *Service) TransitionStatus(ctx context.Context, orderID int64, to domain.OrderStatus, actor string) (*domain.Order, error) {
	if !to.Valid() {
		return nil, domain.Invalid(fmt.Sprintf("unknown order status %q", to))
	}

	var (
		updated  *domain.Order
		from     domain.OrderStatus
		restocks []inventory.MovementResult
	)
	err := s.tx.WithinTx(ctx, func(repos repository.TxRepos) error {
		restocks = nil
		o, err := repos.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		from = o.OrderStatus
		if !from.CanTransitionTo(to) {
			return fmt.Errorf("order %d cannot move from %s to %s: %w", orderID, from, to, domain.ErrConflict)
		}
		moved, err := repos.Orders().UpdateStatus(ctx, orderID, from, to)
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("order %d changed concurrently: %w", orderID, domain.ErrConflict)
		}
		if to.ReleasesStock() {
			if restocks, err = ReturnStock(ctx, repos, o, "order "+string(to), actor); err != nil {
				return err
			}
		}
		o.OrderStatus = to
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor),
	)
	s.stock.NotifyBackInStock(ctx, restocks...)
	s.dispatcher.Dispatch(ctx, notify.Message{
		Kind:      notify.KindOrderStatusChange,
		Recipient: userActor(updated.UserID),
		Payload: map[string]any{
			"orderId": updated.ID,
			"from":    string(from),
			"to":      string(to),
		},
	})
	return updated, nil
}

// ReturnStock appends a return movement for every line of o, in ascending
// variant order so it locks rows the same way PlaceOrder does.
func ReturnStock(ctx context.Context, repos repository.TxRepos, o *domain.Order, reason, actor string) ([]inventory.MovementResult, error) {
	lines := slices.Clone(o.Lines)
	slices.SortFunc(lines, func(a, b domain.OrderLine) int {
		switch {
		case a.VariantID < b.VariantID:
			return -1
		case a.VariantID > b.VariantID:
			return 1
		}
		return 0
	})
	ref := strconv.FormatInt(o.ID, 10)
	results := make([]inventory.MovementResult, 0, len(lines))
	for _, l := range lines {
		res, err := inventory.ApplyMovementTx(ctx, repos, inventory.MovementInput{
			VariantID:   l.VariantID,
			Type:        domain.MovementReturn,
			Delta:       l.Quantity,
			ReferenceID: ref,
			Reason:      reason,
			Actor:       actor,
		})
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Get returns one of the user's orders. Orders of other users are reported
// as not found.
func (s *Service) Get(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		return nil, domain.Invalid("offset must not be negative")
	}
	return s.orders.ListByUser(ctx, userID, limit, offset)
}

type PaymentIntent struct {
	ClientSecret          string          `json:"clientSecret"`
	ExternalTransactionID string          `json:"externalTransactionId"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
}

// CreatePaymentIntent prices the user's cart, after any promotion, and opens
// a payment intent for that amount with the processor.
func (s *Service) CreatePaymentIntent(ctx context.Context, userID int64, promotionCode string) (*PaymentIntent, error) {
	lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	amount := domain.Cart{Lines: lines}.Subtotal()

	if strings.TrimSpace(promotionCode) != "" {
		ev, err := s.promos.Evaluate(ctx, promotionCode, userID, amount, promotion.ItemsFromCart(lines))
		if err != nil {
			return nil, err
		}
		if !ev.Valid {
			return nil, domain.Invalid(ev.Reason)
		}
		amount = ev.FinalTotal
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, amount, s.currency, map[string]string{
		"user_id": strconv.FormatInt(userID, 10),
	})
	if err != nil {
		if !errors.Is(err, domain.ErrExternalService) {
			err = fmt.Errorf("%v: %w", err, domain.ErrExternalService)
		}
		s.logger.Error("payment intent failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &PaymentIntent{
		ClientSecret:          intent.ClientSecret,
		ExternalTransactionID: intent.ID,
		Amount:                amount,
		Currency:              s.currency,
	}, nil
}

func userActor(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}
