// Package notify delivers customer-facing notifications. Delivery is
// best-effort: Dispatcher sends in the background and only logs failures.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Kind string

const (
	KindWelcome             Kind = "welcome"
	KindOrderConfirmation   Kind = "order_confirmation"
	KindPaymentConfirmation Kind = "payment_confirmation"
	KindOrderStatusChange   Kind = "order_status_change"
	KindBackInStock         Kind = "back_in_stock"
	KindPromotional         Kind = "promotional"
)

// RecipientAllCustomers addresses a message to every subscribed customer.
const RecipientAllCustomers = "customers:all"

type Message struct {
	Kind      Kind           `json:"kind"`
	Recipient string         `json:"recipient"`
	Payload   map[string]any `json:"payload,omitempty"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

const defaultSendTimeout = 10 * time.Second

// Dispatcher sends messages without holding up the caller.
type Dispatcher struct {
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{notifier: n, logger: logger, timeout: defaultSendTimeout}
}

// Dispatch queues msg for delivery. A nil Dispatcher drops the message.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	if d == nil || d.notifier == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		if err := d.notifier.Send(sendCtx, msg); err != nil {
			d.logger.Warn("notification failed",
				zap.String("kind", string(msg.Kind)),
				zap.String("recipient", msg.Recipient),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every queued message has been attempted.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

// LogNotifier writes notifications to the log instead of a broker.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("notification",
		zap.String("kind", string(msg.Kind)),
		zap.String("recipient", msg.Recipient),
		zap.Any("payload", msg.Payload),
	)
	return nil
}
