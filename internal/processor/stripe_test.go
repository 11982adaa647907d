package processor

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76/webhook"

	"storefront/internal/domain"
)

const testSecret = "whsec_test"

func signed(t *testing.T, payload string) string {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testSecret,
	})
	return sp.Header
}

func TestParseEventSucceeded(t *testing.T) {
	s := NewStripe("sk_test", testSecret)
	payload := `{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","object":"payment_intent","amount":4500,"currency":"usd"}}}`

	ev, err := s.ParseEvent([]byte(payload), signed(t, payload))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Type != EventPaymentSucceeded || ev.ExternalTransactionID != "pi_123" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !ev.Amount.Equal(decimal.RequireFromString("45.00")) || ev.Currency != "usd" {
		t.Fatalf("unexpected amount %s %s", ev.Amount, ev.Currency)
	}
}

func TestParseEventBadSignature(t *testing.T) {
	s := NewStripe("sk_test", testSecret)
	payload := `{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`

	_, err := s.ParseEvent([]byte(payload), "t=1,v1=deadbeef")
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseEventOtherTypes(t *testing.T) {
	s := NewStripe("sk_test", testSecret)
	payload := `{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`

	ev, err := s.ParseEvent([]byte(payload), signed(t, payload))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Type != "customer.created" || ev.ExternalTransactionID != "" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"45.005", "usd", 4501},
		{"0.1", "EUR", 10},
		{"1200", "jpy", 1200},
		{"1200.5", "jpy", 1201},
		{"1.234", "kwd", 1234},
	}
	for _, c := range cases {
		if got := toMinorUnits(decimal.RequireFromString(c.amount), c.currency); got != c.want {
			t.Fatalf("toMinorUnits(%s %s) = %d, want %d", c.amount, c.currency, got, c.want)
		}
	}
}

func TestParseEventZeroDecimalCurrency(t *testing.T) {
	s := NewStripe("sk_test", testSecret)
	payload := `{"id":"evt_3","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_9","object":"payment_intent","amount":4500,"currency":"jpy"}}}`

	ev, err := s.ParseEvent([]byte(payload), signed(t, payload))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if !ev.Amount.Equal(decimal.NewFromInt(4500)) {
		t.Fatalf("expected 4500 yen, got %s", ev.Amount)
	}
}
