package domain

import "time"

type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementRestock    MovementType = "restock"
	MovementAdjustment MovementType = "adjustment"
	MovementReturn     MovementType = "return"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementSale, MovementRestock, MovementAdjustment, MovementReturn:
		return true
	}
	return false
}

// StockMovement is an immutable audit row. QuantityAfter = QuantityBefore + Delta.
type StockMovement struct {
	ID             int64        `json:"id"`
	VariantID      int64        `json:"variantId"`
	Type           MovementType `json:"type"`
	Delta          int64        `json:"delta"`
	QuantityBefore int64        `json:"quantityBefore"`
	QuantityAfter  int64        `json:"quantityAfter"`
	ReferenceID    string       `json:"referenceId,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	Actor          string       `json:"actor"`
	CreatedAt      time.Time    `json:"createdAt"`
}
