package order

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/testutil/pgtest"
)

func newOrder(userID, variantID int64, ref string) domain.Order {
	price := decimal.RequireFromString("10.00")
	return domain.Order{
		UserID:                userID,
		Lines:                 []domain.OrderLine{{VariantID: variantID, Quantity: 2, UnitPrice: price}},
		SubtotalAmount:        decimal.RequireFromString("20.00"),
		DiscountAmount:        decimal.Zero,
		TotalAmount:           decimal.RequireFromString("20.00"),
		Currency:              "usd",
		ShippingMethod:        "standard",
		ShippingAddress:       "1 Main St",
		PaymentStatus:         domain.PaymentPending,
		OrderStatus:           domain.OrderProcessing,
		ExternalTransactionID: ref,
	}
}

func TestPostgres_CreateAndRead(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	userID := pgtest.Customer(ctx, t, pool, "o@example.com")
	variantID := pgtest.Variant(ctx, t, pool, "A", "10.00", 5)

	repo := NewPostgres(pool)
	created, err := repo.Create(ctx, newOrder(userID, variantID, "pi_1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created.Lines) != 1 || created.Lines[0].OrderID != created.ID {
		t.Fatalf("unexpected lines %+v", created.Lines)
	}

	if _, err := repo.Create(ctx, newOrder(userID, variantID, "pi_1")); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict on reused reference, got %v", err)
	}

	got, err := repo.GetByExternalID(ctx, "pi_1")
	if err != nil {
		t.Fatalf("GetByExternalID: %v", err)
	}
	if got.ID != created.ID || !got.TotalAmount.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("unexpected order %+v", got)
	}

	pay, err := repo.GetPayment(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if pay.Status != domain.PaymentPending || pay.ExternalTransactionID != "pi_1" {
		t.Fatalf("unexpected payment %+v", pay)
	}

	list, err := repo.ListByUser(ctx, userID, 10, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByUser = %d, %v", len(list), err)
	}
}

func TestPostgres_SettlePaymentOnlyOnce(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(t)
	userID := pgtest.Customer(ctx, t, pool, "o@example.com")
	variantID := pgtest.Variant(ctx, t, pool, "A", "10.00", 5)

	repo := NewPostgres(pool)
	if _, err := repo.Create(ctx, newOrder(userID, variantID, "pi_2")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	settled, ok, err := repo.SettlePayment(ctx, "pi_2", domain.OrderProcessing, domain.PaymentPaid, domain.OrderPaid)
	if err != nil || !ok {
		t.Fatalf("SettlePayment = %v, %v", ok, err)
	}
	if settled.PaymentStatus != domain.PaymentPaid || settled.OrderStatus != domain.OrderPaid {
		t.Fatalf("unexpected order %+v", settled)
	}

	_, ok, err = repo.SettlePayment(ctx, "pi_2", domain.OrderProcessing, domain.PaymentPaid, domain.OrderPaid)
	if err != nil || ok {
		t.Fatalf("second settle should be a no-op, got %v, %v", ok, err)
	}

	pay, err := repo.GetPayment(ctx, settled.ID)
	if err != nil || pay.Status != domain.PaymentPaid {
		t.Fatalf("payment not mirrored: %+v, %v", pay, err)
	}

	moved, err := repo.UpdateStatus(ctx, settled.ID, domain.OrderPaid, domain.OrderShipped)
	if err != nil || !moved {
		t.Fatalf("UpdateStatus = %v, %v", moved, err)
	}
	moved, err = repo.UpdateStatus(ctx, settled.ID, domain.OrderPaid, domain.OrderShipped)
	if err != nil || moved {
		t.Fatalf("stale UpdateStatus should not match, got %v, %v", moved, err)
	}
}
