package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/repository"
	promorepo "storefront/internal/repository/promotion"
)

// Reasons reported on an invalid Evaluation. Clients match on these strings.
const (
	ReasonNotFound        = "promotion not found"
	ReasonInactive        = "promotion inactive"
	ReasonNotStarted      = "promotion not started"
	ReasonExpired         = "promotion expired"
	ReasonMinimumNotMet   = "minimum order value not met"
	ReasonUsageLimit      = "usage limit reached"
	ReasonAlreadyRedeemed = "already redeemed"
	ReasonNoApplicable    = "no applicable items"
)

var hundred = decimal.NewFromInt(100)

// Item is one priced cart or order line offered to the evaluator.
type Item struct {
	VariantID   int64           `json:"variantId"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	CategoryIDs []int64         `json:"categoryIds,omitempty"`
}

func (i Item) total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// ItemsFromCart converts cart lines into evaluator items.
func ItemsFromCart(lines []domain.CartLine) []Item {
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, Item{VariantID: l.VariantID, Quantity: l.Quantity, UnitPrice: l.UnitPrice, CategoryIDs: l.CategoryIDs})
	}
	return items
}

type Evaluation struct {
	Valid          bool            `json:"valid"`
	Code           string          `json:"code"`
	PromotionID    int64           `json:"-"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalTotal     decimal.Decimal `json:"finalTotal"`
	Reason         string          `json:"reason,omitempty"`
}

type Service struct {
	repo       promorepo.Repository
	dispatcher *notify.Dispatcher
	now        func() time.Time
}

// New builds the evaluator. dispatcher may be nil, in which case new
// promotions are not announced.
func New(repo promorepo.Repository, dispatcher *notify.Dispatcher) *Service {
	return &Service{repo: repo, dispatcher: dispatcher, now: time.Now}
}

// Evaluate checks code for userID against a cart. An unusable promotion is
// not an error: it yields Valid=false with one of the Reason constants.
func (s *Service) Evaluate(ctx context.Context, code string, userID int64, cartTotal decimal.Decimal, items []Item) (*Evaluation, error) {
	return s.evaluate(ctx, s.repo, code, userID, cartTotal, items)
}

// EvaluateTx is Evaluate against the caller's transaction.
func (s *Service) EvaluateTx(ctx context.Context, repos repository.TxRepos, code string, userID int64, cartTotal decimal.Decimal, items []Item) (*Evaluation, error) {
	return s.evaluate(ctx, repos.Promotions(), code, userID, cartTotal, items)
}

func (s *Service) evaluate(ctx context.Context, repo promorepo.Repository, code string, userID int64, cartTotal decimal.Decimal, items []Item) (*Evaluation, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return nil, domain.Invalid("promotion code required")
	}
	if cartTotal.IsNegative() {
		return nil, domain.Invalid("cart total must not be negative")
	}
	reject := func(reason string) (*Evaluation, error) {
		return &Evaluation{Code: code, DiscountAmount: decimal.Zero, FinalTotal: cartTotal, Reason: reason}, nil
	}

	p, err := repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return reject(ReasonNotFound)
		}
		return nil, err
	}

	now := s.now()
	switch {
	case !p.Active:
		return reject(ReasonInactive)
	case p.StartsAt != nil && now.Before(*p.StartsAt):
		return reject(ReasonNotStarted)
	case p.EndsAt != nil && now.After(*p.EndsAt):
		return reject(ReasonExpired)
	case cartTotal.LessThan(p.MinimumOrderValue):
		return reject(ReasonMinimumNotMet)
	case p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit:
		return reject(ReasonUsageLimit)
	}

	used, err := repo.HasUsage(ctx, p.ID, userID)
	if err != nil {
		return nil, err
	}
	if used {
		return reject(ReasonAlreadyRedeemed)
	}

	var discount decimal.Decimal
	switch p.DiscountType {
	case domain.DiscountPercentage:
		discount = cartTotal.Mul(p.Rate).Div(hundred)
	case domain.DiscountFixedAmount:
		discount = p.Rate
	case domain.DiscountCategorySpecific:
		matching := decimal.Zero
		found := false
		for _, it := range items {
			if p.AppliesToCategory(it.CategoryIDs) {
				matching = matching.Add(it.total())
				found = true
			}
		}
		if !found {
			return reject(ReasonNoApplicable)
		}
		discount = matching.Mul(p.Rate).Div(hundred)
	default:
		return nil, fmt.Errorf("promotion %s: unsupported discount type %q", p.Code, p.DiscountType)
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(cartTotal) {
		discount = cartTotal
	}
	discount = discount.Round(2)

	return &Evaluation{
		Valid:          true,
		Code:           p.Code,
		PromotionID:    p.ID,
		DiscountAmount: discount,
		FinalTotal:     cartTotal.Sub(discount),
	}, nil
}

// Apply records a redemption inside the caller's transaction. A second
// redemption by the same user, or one past the usage limit, fails with
// domain.ErrConflict.
func (s *Service) Apply(ctx context.Context, repos repository.TxRepos, promotionID, userID, orderID int64) error {
	promos := repos.Promotions()
	if _, err := promos.RecordUsage(ctx, domain.PromotionUsage{PromotionID: promotionID, UserID: userID, OrderID: orderID}); err != nil {
		return err
	}
	return promos.IncrementUsage(ctx, promotionID)
}

// Create registers a new promotion. Used by seed data and admin tooling.
// An active promotion is announced to all customers after it is stored.
func (s *Service) Create(ctx context.Context, p domain.Promotion) (*domain.Promotion, error) {
	if strings.TrimSpace(p.Code) == "" {
		return nil, domain.Invalid("promotion code required")
	}
	switch p.DiscountType {
	case domain.DiscountPercentage, domain.DiscountCategorySpecific:
		if p.Rate.IsNegative() || p.Rate.GreaterThan(hundred) {
			return nil, domain.Invalid("percentage rate must be between 0 and 100")
		}
	case domain.DiscountFixedAmount:
		if p.Rate.IsNegative() {
			return nil, domain.Invalid("fixed amount must not be negative")
		}
	default:
		return nil, domain.Invalid(fmt.Sprintf("unknown discount type %q", p.DiscountType))
	}
	if p.DiscountType == domain.DiscountCategorySpecific && len(p.ApplicableCategories) == 0 {
		return nil, domain.Invalid("category promotion needs at least one category")
	}
	if p.StartsAt != nil && p.EndsAt != nil && p.EndsAt.Before(*p.StartsAt) {
		return nil, domain.Invalid("promotion ends before it starts")
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	if created.Active {
		payload := map[string]any{
			"code":         created.Code,
			"discountType": string(created.DiscountType),
			"rate":         created.Rate.String(),
		}
		if created.EndsAt != nil {
			payload["endsAt"] = created.EndsAt.Format(time.RFC3339)
		}
		s.dispatcher.Dispatch(ctx, notify.Message{
			Kind:      notify.KindPromotional,
			Recipient: notify.RecipientAllCustomers,
			Payload:   payload,
		})
	}
	return created, nil
}
