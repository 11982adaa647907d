package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"storefront/internal/domain"
)

type Stripe struct {
	api           *client.API
	webhookSecret string
}

func NewStripe(apiKey, webhookSecret string) *Stripe {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Stripe{api: api, webhookSecret: webhookSecret}
}

func (s *Stripe) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(amount, currency)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %v: %w", err, domain.ErrExternalService)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (s *Stripe) ParseEvent(payload []byte, signatureHeader string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidSignature)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	switch out.Type {
	case EventPaymentSucceeded, EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, domain.Invalid(fmt.Sprintf("decode payment intent: %v", err))
		}
		out.ExternalTransactionID = pi.ID
		out.Amount = fromMinorUnits(pi.Amount, string(pi.Currency))
		out.Currency = string(pi.Currency)
	}
	return out, nil
}

// toMinorUnits converts an amount to the currency's smallest unit, rounding
// half away from zero.
func toMinorUnits(amount decimal.Decimal, currency string) int64 {
	exp := domain.CurrencyExponent(currency)
	return amount.Round(exp).Shift(exp).IntPart()
}

func fromMinorUnits(units int64, currency string) decimal.Decimal {
	return decimal.New(units, -domain.CurrencyExponent(currency))
}
