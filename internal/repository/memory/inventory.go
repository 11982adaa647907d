package memory

import (
	"context"

	"storefront/internal/domain"
)

type inventoryRepo struct{ sc scope }

func (r *inventoryRepo) LockQuantity(ctx context.Context, variantID int64) (int64, error) {
	return r.Quantity(ctx, variantID)
}

func (r *inventoryRepo) Quantity(_ context.Context, variantID int64) (int64, error) {
	defer r.sc.lock()()
	v, ok := r.sc.db().variants[variantID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return v.QuantityInStock, nil
}

func (r *inventoryRepo) SetQuantity(_ context.Context, variantID, qty int64) error {
	defer r.sc.lock()()
	v, ok := r.sc.db().variants[variantID]
	if !ok {
		return domain.ErrNotFound
	}
	if qty < 0 {
		return domain.ErrInsufficientStock
	}
	v.QuantityInStock = qty
	r.sc.db().variants[variantID] = v
	return nil
}

func (r *inventoryRepo) AppendMovement(_ context.Context, m domain.StockMovement) (*domain.StockMovement, error) {
	defer r.sc.lock()()
	st := r.sc.db()
	m.ID = st.next("stock_movements")
	m.CreatedAt = r.sc.s.now()
	st.movements = append(st.movements, m)
	return &m, nil
}

func (r *inventoryRepo) ListMovements(_ context.Context, variantID int64, limit int) ([]domain.StockMovement, error) {
	defer r.sc.lock()()
	out := make([]domain.StockMovement, 0)
	all := r.sc.db().movements
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].VariantID != variantID {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
