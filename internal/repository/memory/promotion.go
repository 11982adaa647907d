package memory

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

type promotionRepo struct{ sc scope }

func (r *promotionRepo) GetByCode(_ context.Context, code string) (*domain.Promotion, error) {
	defer r.sc.lock()()
	want := domain.NormalizeCode(code)
	for _, p := range r.sc.db().promotions {
		if p.Code == want {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *promotionRepo) Create(_ context.Context, p domain.Promotion) (*domain.Promotion, error) {
	defer r.sc.lock()()
	st := r.sc.db()
	p.Code = domain.NormalizeCode(p.Code)
	for _, existing := range st.promotions {
		if existing.Code == p.Code {
			return nil, fmt.Errorf("promotion %q: %w", p.Code, domain.ErrAlreadyExists)
		}
	}
	p.ID = st.next("promotions")
	p.CreatedAt = r.sc.s.now()
	st.promotions[p.ID] = p
	return &p, nil
}

func (r *promotionRepo) HasUsage(_ context.Context, promotionID, userID int64) (bool, error) {
	defer r.sc.lock()()
	for _, u := range r.sc.db().usages {
		if u.PromotionID == promotionID && u.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *promotionRepo) RecordUsage(_ context.Context, u domain.PromotionUsage) (*domain.PromotionUsage, error) {
	defer r.sc.lock()()
	st := r.sc.db()
	for _, existing := range st.usages {
		if existing.PromotionID == u.PromotionID && existing.UserID == u.UserID {
			return nil, fmt.Errorf("promotion already redeemed: %w", domain.ErrConflict)
		}
	}
	u.ID = st.next("promotion_usages")
	u.CreatedAt = r.sc.s.now()
	st.usages = append(st.usages, u)
	return &u, nil
}

func (r *promotionRepo) IncrementUsage(_ context.Context, promotionID int64) error {
	defer r.sc.lock()()
	p, ok := r.sc.db().promotions[promotionID]
	if !ok || (p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit) {
		return fmt.Errorf("promotion usage limit reached: %w", domain.ErrConflict)
	}
	p.UsageCount++
	r.sc.db().promotions[promotionID] = p
	return nil
}
