package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"storefront/internal/domain"
)

type orderRepo struct{ sc scope }

func (r *orderRepo) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	defer r.sc.lock()()
	st := r.sc.db()
	for _, existing := range st.orders {
		if existing.ExternalTransactionID == o.ExternalTransactionID {
			return nil, fmt.Errorf("external transaction %q already used: %w", o.ExternalTransactionID, domain.ErrConflict)
		}
	}
	now := r.sc.s.now()
	o.ID = st.next("orders")
	o.CreatedAt = now
	o.UpdatedAt = now
	lines := make([]domain.OrderLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		l.ID = st.next("order_lines")
		l.OrderID = o.ID
		lines = append(lines, l)
	}
	o.Lines = lines
	st.orders[o.ID] = o
	st.payments[o.ID] = domain.Payment{
		ID:                    st.next("payments"),
		OrderID:               o.ID,
		Amount:                o.TotalAmount,
		Currency:              o.Currency,
		Status:                o.PaymentStatus,
		ExternalTransactionID: o.ExternalTransactionID,
		UpdatedAt:             now,
	}
	return copyOrder(o), nil
}

func (r *orderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	defer r.sc.lock()()
	o, ok := r.sc.db().orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *orderRepo) GetByExternalID(_ context.Context, externalID string) (*domain.Order, error) {
	defer r.sc.lock()()
	o, ok := r.byExternalID(externalID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *orderRepo) byExternalID(externalID string) (domain.Order, bool) {
	for _, o := range r.sc.db().orders {
		if o.ExternalTransactionID == externalID {
			return o, true
		}
	}
	return domain.Order{}, false
}

func (r *orderRepo) ListByUser(_ context.Context, userID int64, limit, offset int) ([]domain.Order, error) {
	defer r.sc.lock()()
	out := make([]domain.Order, 0)
	for _, o := range r.sc.db().orders {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func (r *orderRepo) GetPayment(_ context.Context, orderID int64) (*domain.Payment, error) {
	defer r.sc.lock()()
	p, ok := r.sc.db().payments[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *orderRepo) UpdateStatus(_ context.Context, id int64, from, to domain.OrderStatus) (bool, error) {
	defer r.sc.lock()()
	o, ok := r.sc.db().orders[id]
	if !ok || o.OrderStatus != from {
		return false, nil
	}
	o.OrderStatus = to
	o.UpdatedAt = r.sc.s.now()
	r.sc.db().orders[id] = o
	return true, nil
}

func (r *orderRepo) SettlePayment(_ context.Context, externalID string, from domain.OrderStatus, payment domain.PaymentStatus, to domain.OrderStatus) (*domain.Order, bool, error) {
	defer r.sc.lock()()
	st := r.sc.db()
	o, ok := r.byExternalID(externalID)
	if !ok || o.PaymentStatus != domain.PaymentPending || o.OrderStatus != from {
		return nil, false, nil
	}
	now := r.sc.s.now()
	o.PaymentStatus = payment
	o.OrderStatus = to
	o.UpdatedAt = now
	st.orders[o.ID] = o

	p := st.payments[o.ID]
	p.Status = payment
	p.UpdatedAt = now
	st.payments[o.ID] = p
	return copyOrder(o), true, nil
}

func copyOrder(o domain.Order) *domain.Order {
	o.Lines = slices.Clone(o.Lines)
	return &o
}
