package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type OrderStatus string

const (
	OrderProcessing OrderStatus = "processing"
	OrderPaid       OrderStatus = "paid"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderProcessing: {OrderPaid, OrderCancelled, OrderRefunded},
	OrderPaid:       {OrderShipped, OrderCancelled, OrderRefunded},
	OrderShipped:    {OrderDelivered, OrderCancelled, OrderRefunded},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderProcessing, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows s -> next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReleasesStock reports whether entering s hands debited stock back to the ledger.
func (s OrderStatus) ReleasesStock() bool {
	return s == OrderCancelled || s == OrderRefunded
}

type Order struct {
	ID                    int64           `json:"id"`
	UserID                int64           `json:"userId"`
	Lines                 []OrderLine     `json:"lines"`
	SubtotalAmount        decimal.Decimal `json:"subtotalAmount"`
	DiscountAmount        decimal.Decimal `json:"discountAmount"`
	TotalAmount           decimal.Decimal `json:"totalAmount"`
	Currency              string          `json:"currency"`
	ShippingMethod        string          `json:"shippingMethod"`
	ShippingAddress       string          `json:"shippingAddress"`
	PaymentStatus         PaymentStatus   `json:"paymentStatus"`
	OrderStatus           OrderStatus     `json:"orderStatus"`
	ExternalTransactionID string          `json:"externalTransactionId"`
	PromotionCode         string          `json:"promotionCode,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// OrderLine captures the unit price at purchase time.
type OrderLine struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"orderId"`
	VariantID int64           `json:"variantId"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Payment mirrors the order's payment status; one per order.
type Payment struct {
	ID                    int64           `json:"id"`
	OrderID               int64           `json:"orderId"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Status                PaymentStatus   `json:"status"`
	ExternalTransactionID string          `json:"externalTransactionId"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}
