// Package processor adapts the external payment processor.
package processor

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

type Intent struct {
	ID           string
	ClientSecret string
}

// Event is a verified processor notification. ExternalTransactionID is only
// set for payment intent events.
type Event struct {
	ID                    string
	Type                  string
	ExternalTransactionID string
	Amount                decimal.Decimal
	Currency              string
}

type Processor interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error)
	// ParseEvent verifies the signature header before decoding payload.
	ParseEvent(payload []byte, signatureHeader string) (*Event, error)
}
