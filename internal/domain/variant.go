package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Variant is a purchasable SKU of a product.
type Variant struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"productId"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	WeightGrams     int64           `json:"weightGrams"`
	QuantityInStock int64           `json:"quantityInStock"`
	CategoryIDs     []int64         `json:"categoryIds,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}
