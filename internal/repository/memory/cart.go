package memory

import (
	"context"
	"fmt"
	"sort"

	"storefront/internal/domain"
)

type cartRepo struct{ sc scope }

func (r *cartRepo) cartFor(userID int64) (domain.Cart, bool) {
	for _, c := range r.sc.db().carts {
		if c.UserID == userID {
			return c, true
		}
	}
	return domain.Cart{}, false
}

func (r *cartRepo) Ensure(_ context.Context, userID int64) (*domain.Cart, error) {
	defer r.sc.lock()()
	st := r.sc.db()
	if c, ok := r.cartFor(userID); ok {
		return &c, nil
	}
	if _, ok := st.customers[userID]; !ok {
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	c := domain.Cart{ID: st.next("carts"), UserID: userID, CreatedAt: r.sc.s.now()}
	st.carts[c.ID] = c
	return &c, nil
}

func (r *cartRepo) UpsertLine(_ context.Context, cartID, variantID, qty int64) (*domain.CartLine, error) {
	defer r.sc.lock()()
	st := r.sc.db()
	if _, ok := st.variants[variantID]; !ok {
		return nil, fmt.Errorf("variant %d: %w", variantID, domain.ErrNotFound)
	}
	for id, l := range st.cartLines {
		if l.CartID == cartID && l.VariantID == variantID {
			l.Quantity += qty
			st.cartLines[id] = l
			return &l, nil
		}
	}
	l := domain.CartLine{
		ID:        st.next("cart_lines"),
		CartID:    cartID,
		VariantID: variantID,
		Quantity:  qty,
		CreatedAt: r.sc.s.now(),
	}
	st.cartLines[l.ID] = l
	return &l, nil
}

func (r *cartRepo) Lines(_ context.Context, userID int64) ([]domain.CartLine, error) {
	defer r.sc.lock()()
	st := r.sc.db()
	lines := make([]domain.CartLine, 0)
	c, ok := r.cartFor(userID)
	if !ok {
		return lines, nil
	}
	for _, l := range st.cartLines {
		if l.CartID != c.ID {
			continue
		}
		v := st.variants[l.VariantID]
		l.SKU = v.SKU
		l.Name = v.Name
		l.UnitPrice = v.Price
		l.CategoryIDs = v.CategoryIDs
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

func (r *cartRepo) ownedLine(userID, lineID int64) (domain.CartLine, bool) {
	c, ok := r.cartFor(userID)
	if !ok {
		return domain.CartLine{}, false
	}
	l, ok := r.sc.db().cartLines[lineID]
	if !ok || l.CartID != c.ID {
		return domain.CartLine{}, false
	}
	return l, true
}

func (r *cartRepo) UpdateLineQty(_ context.Context, userID, lineID, qty int64) error {
	defer r.sc.lock()()
	l, ok := r.ownedLine(userID, lineID)
	if !ok {
		return domain.ErrNotFound
	}
	l.Quantity = qty
	r.sc.db().cartLines[lineID] = l
	return nil
}

func (r *cartRepo) DeleteLine(_ context.Context, userID, lineID int64) error {
	defer r.sc.lock()()
	if _, ok := r.ownedLine(userID, lineID); !ok {
		return domain.ErrNotFound
	}
	delete(r.sc.db().cartLines, lineID)
	return nil
}

// Lock is a no-op: transactions on the store are already serialized.
func (r *cartRepo) Lock(context.Context, int64) error { return nil }

func (r *cartRepo) Clear(_ context.Context, userID int64) (int64, error) {
	defer r.sc.lock()()
	c, ok := r.cartFor(userID)
	if !ok {
		return 0, nil
	}
	var n int64
	for id, l := range r.sc.db().cartLines {
		if l.CartID == c.ID {
			delete(r.sc.db().cartLines, id)
			n++
		}
	}
	return n, nil
}
