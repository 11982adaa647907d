package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage       DiscountType = "percentage"
	DiscountFixedAmount      DiscountType = "fixed_amount"
	DiscountCategorySpecific DiscountType = "category_specific"
)

type Promotion struct {
	ID                   int64           `json:"id"`
	Code                 string          `json:"code"`
	DiscountType         DiscountType    `json:"discountType"`
	Rate                 decimal.Decimal `json:"rate"`
	StartsAt             *time.Time      `json:"startsAt,omitempty"`
	EndsAt               *time.Time      `json:"endsAt,omitempty"`
	MinimumOrderValue    decimal.Decimal `json:"minimumOrderValue"`
	UsageLimit           int64           `json:"usageLimit"`
	UsageCount           int64           `json:"usageCount"`
	Active               bool            `json:"active"`
	ApplicableCategories []int64         `json:"applicableCategories,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
}

// NormalizeCode canonicalises a redemption code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AppliesToCategory reports whether any of ids is in ApplicableCategories.
func (p Promotion) AppliesToCategory(ids []int64) bool {
	for _, want := range p.ApplicableCategories {
		for _, id := range ids {
			if id == want {
				return true
			}
		}
	}
	return false
}

// PromotionUsage links a one-time redemption by a user to an order.
type PromotionUsage struct {
	ID          int64     `json:"id"`
	PromotionID int64     `json:"promotionId"`
	UserID      int64     `json:"userId"`
	OrderID     int64     `json:"orderId"`
	CreatedAt   time.Time `json:"createdAt"`
}
