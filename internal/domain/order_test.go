package domain

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderProcessing, OrderPaid},
		{OrderPaid, OrderShipped},
		{OrderShipped, OrderDelivered},
		{OrderProcessing, OrderCancelled},
		{OrderPaid, OrderRefunded},
		{OrderShipped, OrderCancelled},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to OrderStatus }{
		{OrderProcessing, OrderShipped},
		{OrderPaid, OrderProcessing},
		{OrderDelivered, OrderRefunded},
		{OrderCancelled, OrderPaid},
		{OrderRefunded, OrderCancelled},
		{OrderPaid, OrderPaid},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestOrderStatusReleasesStock(t *testing.T) {
	if !OrderCancelled.ReleasesStock() || !OrderRefunded.ReleasesStock() {
		t.Fatalf("cancelled and refunded must release stock")
	}
	if OrderShipped.ReleasesStock() {
		t.Fatalf("shipped must not release stock")
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  save10 "); got != "SAVE10" {
		t.Fatalf("NormalizeCode = %q", got)
	}
}
