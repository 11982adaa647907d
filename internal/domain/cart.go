package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
	Lines     []CartLine `json:"lines"`
}

// CartLine is one (cart, variant) pair. UnitPrice and Name are read from the
// variant at query time and are not stored on the line.
type CartLine struct {
	ID          int64           `json:"id"`
	CartID      int64           `json:"cartId"`
	VariantID   int64           `json:"variantId"`
	Quantity    int64           `json:"quantity"`
	SKU         string          `json:"sku,omitempty"`
	Name        string          `json:"name,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	CategoryIDs []int64         `json:"categoryIds,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// LineTotal returns UnitPrice × Quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// Subtotal sums the line totals of the cart.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.LineTotal())
	}
	return total
}
