package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/processor"
	"storefront/internal/repository"
	"storefront/internal/service/inventory"
	"storefront/internal/service/order"
)

type Outcome string

const (
	// OutcomeApplied means this delivery changed the order.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate means the payment was already settled.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored means the event type is not one we act on.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeAmountMismatch means the processor captured a different amount
	// or currency than the order total. The order stays pending.
	OutcomeAmountMismatch Outcome = "amount_mismatch"
)

type Result struct {
	EventType string  `json:"eventType"`
	Outcome   Outcome `json:"outcome"`
	OrderID   int64   `json:"orderId,omitempty"`
}

type stockNotifier interface {
	NotifyBackInStock(ctx context.Context, results ...inventory.MovementResult)
}

type Service struct {
	tx         repository.TxManager
	processor  processor.Processor
	stock      stockNotifier
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

func New(tx repository.TxManager, p processor.Processor, stock stockNotifier, dispatcher *notify.Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tx: tx, processor: p, stock: stock, dispatcher: dispatcher, logger: logger}
}

// HandleWebhook verifies and applies one processor notification. Deliveries
// may repeat; only the first one for a payment changes state.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*Result, error) {
	ev, err := s.processor.ParseEvent(payload, signatureHeader)
	if err != nil {
		s.logger.Warn("webhook rejected", zap.Error(err))
		return nil, err
	}

	switch ev.Type {
	case processor.EventPaymentSucceeded:
		return s.settle(ctx, ev, domain.PaymentPaid)
	case processor.EventPaymentFailed:
		return s.settle(ctx, ev, domain.PaymentFailed)
	default:
		s.logger.Debug("webhook ignored", zap.String("event_type", ev.Type), zap.String("event_id", ev.ID))
		return &Result{EventType: ev.Type, Outcome: OutcomeIgnored}, nil
	}
}

func (s *Service) settle(ctx context.Context, ev *processor.Event, payment domain.PaymentStatus) (*Result, error) {
	if ev.ExternalTransactionID == "" {
		return nil, domain.Invalid("event carries no payment intent id")
	}

	var (
		settled  *domain.Order
		outcome  Outcome
		restocks []inventory.MovementResult
	)
	err := s.tx.WithinTx(ctx, func(repos repository.TxRepos) error {
		restocks = nil
		current, err := repos.Orders().GetByExternalID(ctx, ev.ExternalTransactionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("order for payment %s: %w", ev.ExternalTransactionID, domain.ErrNotFound)
			}
			return err
		}
		if current.PaymentStatus != domain.PaymentPending {
			settled, outcome = current, OutcomeDuplicate
			return nil
		}
		if payment == domain.PaymentPaid && !chargeMatches(ev, current) {
			settled, outcome = current, OutcomeAmountMismatch
			return nil
		}

		target := current.OrderStatus
		switch payment {
		case domain.PaymentPaid:
			if current.OrderStatus == domain.OrderProcessing {
				target = domain.OrderPaid
			}
		case domain.PaymentFailed:
			if current.OrderStatus.CanTransitionTo(domain.OrderCancelled) {
				target = domain.OrderCancelled
			}
		}

		o, ok, err := repos.Orders().SettlePayment(ctx, ev.ExternalTransactionID, current.OrderStatus, payment, target)
		if err != nil {
			return err
		}
		if !ok {
			again, err := repos.Orders().GetByExternalID(ctx, ev.ExternalTransactionID)
			if err != nil {
				return err
			}
			if again.PaymentStatus != domain.PaymentPending {
				settled, outcome = again, OutcomeDuplicate
				return nil
			}
			return fmt.Errorf("order %d changed while settling payment: %w", again.ID, domain.ErrConflict)
		}

		switch {
		case payment == domain.PaymentPaid:
			if _, err := repos.Carts().Clear(ctx, o.UserID); err != nil {
				return err
			}
		case target != current.OrderStatus && target.ReleasesStock():
			if restocks, err = order.ReturnStock(ctx, repos, o, "payment failed", "processor"); err != nil {
				return err
			}
		}
		settled, outcome = o, OutcomeApplied
		return nil
	})
	if err != nil {
		s.logger.Error("webhook settle failed",
			zap.String("event_type", ev.Type),
			zap.String("external_transaction_id", ev.ExternalTransactionID),
			zap.Error(err),
		)
		return nil, err
	}

	res := &Result{EventType: ev.Type, Outcome: outcome, OrderID: settled.ID}
	switch outcome {
	case OutcomeDuplicate:
		s.logger.Info("webhook duplicate", zap.Int64("order_id", settled.ID), zap.String("event_type", ev.Type))
		return res, nil
	case OutcomeAmountMismatch:
		s.logger.Error("payment does not match order total, order left pending",
			zap.Int64("order_id", settled.ID),
			zap.String("external_transaction_id", ev.ExternalTransactionID),
			zap.String("paid", ev.Amount.StringFixed(2)),
			zap.String("paid_currency", ev.Currency),
			zap.String("total", settled.TotalAmount.StringFixed(2)),
			zap.String("currency", settled.Currency),
		)
		return res, nil
	}

	s.logger.Info("payment settled",
		zap.Int64("order_id", settled.ID),
		zap.String("payment_status", string(settled.PaymentStatus)),
		zap.String("order_status", string(settled.OrderStatus)),
	)

	s.stock.NotifyBackInStock(ctx, restocks...)
	recipient := "user:" + strconv.FormatInt(settled.UserID, 10)
	if payment == domain.PaymentPaid {
		s.dispatcher.Dispatch(ctx, notify.Message{
			Kind:      notify.KindPaymentConfirmation,
			Recipient: recipient,
			Payload: map[string]any{
				"orderId": settled.ID,
				"amount":  settled.TotalAmount.StringFixed(2),
			},
		})
	} else {
		s.dispatcher.Dispatch(ctx, notify.Message{
			Kind:      notify.KindOrderStatusChange,
			Recipient: recipient,
			Payload: map[string]any{
				"orderId": settled.ID,
				"to":      string(settled.OrderStatus),
				"reason":  "payment failed",
			},
		})
	}
	return res, nil
}

// chargeMatches reports whether the captured amount and currency equal the
// order total.
func chargeMatches(ev *processor.Event, o *domain.Order) bool {
	return ev.Amount.Equal(o.TotalAmount) && strings.EqualFold(ev.Currency, o.Currency)
}
