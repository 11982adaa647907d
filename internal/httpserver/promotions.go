package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	promotionsvc "storefront/internal/service/promotion"
)

type evaluateRequest struct {
	Code string `json:"code"`
}

// evaluatePromotion prices the caller's current cart against a code.
func (h *handlers) evaluatePromotion(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		badRequest(c, "code required")
		return
	}
	userID := identity(c).UserID
	cart, err := h.CartSvc.GetLines(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	ev, err := h.PromotionSvc.Evaluate(c.Request.Context(), req.Code, userID, cart.Subtotal(), promotionsvc.ItemsFromCart(cart.Lines))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

type createPromotionRequest struct {
	Code                 string              `json:"code"`
	DiscountType         domain.DiscountType `json:"discountType"`
	Rate                 decimal.Decimal     `json:"rate"`
	StartsAt             *time.Time          `json:"startsAt"`
	EndsAt               *time.Time          `json:"endsAt"`
	MinimumOrderValue    decimal.Decimal     `json:"minimumOrderValue"`
	UsageLimit           int64               `json:"usageLimit"`
	Active               *bool               `json:"active"`
	ApplicableCategories []int64             `json:"applicableCategories"`
}

// promotion defaults an omitted active flag to true.
func (r createPromotionRequest) promotion() domain.Promotion {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return domain.Promotion{
		Code:                 r.Code,
		DiscountType:         r.DiscountType,
		Rate:                 r.Rate,
		StartsAt:             r.StartsAt,
		EndsAt:               r.EndsAt,
		MinimumOrderValue:    r.MinimumOrderValue,
		UsageLimit:           r.UsageLimit,
		Active:               active,
		ApplicableCategories: r.ApplicableCategories,
	}
}

func (h *handlers) createPromotion(c *gin.Context) {
	var req createPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.PromotionSvc.Create(c.Request.Context(), req.promotion())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}
