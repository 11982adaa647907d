package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository/variant"
)

type variantRepo struct{ sc scope }

func (r *variantRepo) GetByID(_ context.Context, id int64) (*domain.Variant, error) {
	defer r.sc.lock()()
	v, ok := r.sc.db().variants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (r *variantRepo) GetBySKU(_ context.Context, sku string) (*domain.Variant, error) {
	defer r.sc.lock()()
	for _, v := range r.sc.db().variants {
		if v.SKU == sku {
			return &v, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *variantRepo) List(_ context.Context, limit, offset int) ([]domain.Variant, error) {
	defer r.sc.lock()()
	all := make([]domain.Variant, 0, len(r.sc.db().variants))
	for _, v := range r.sc.db().variants {
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, limit, offset), nil
}

func (r *variantRepo) LockForUpdate(_ context.Context, ids []int64) ([]domain.Variant, error) {
	defer r.sc.lock()()
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	out := make([]domain.Variant, 0, len(sorted))
	for _, id := range sorted {
		v, ok := r.sc.db().variants[id]
		if !ok {
			return nil, fmt.Errorf("lock variants: %w", domain.ErrNotFound)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *variantRepo) CreateProduct(_ context.Context, p domain.Product) (*domain.Product, error) {
	defer r.sc.lock()()
	st := r.sc.db()
	p.ID = st.next("products")
	p.CreatedAt = r.sc.s.now()
	st.products[p.ID] = p
	return &p, nil
}

func (r *variantRepo) Create(_ context.Context, in variant.CreateInput) (*domain.Variant, error) {
	defer r.sc.lock()()
	st := r.sc.db()
	if _, ok := st.products[in.ProductID]; !ok {
		return nil, fmt.Errorf("product %d: %w", in.ProductID, domain.ErrNotFound)
	}
	for _, v := range st.variants {
		if v.SKU == in.SKU {
			return nil, fmt.Errorf("sku %q: %w", in.SKU, domain.ErrAlreadyExists)
		}
	}
	v := domain.Variant{
		ID:          st.next("variants"),
		ProductID:   in.ProductID,
		SKU:         in.SKU,
		Name:        in.Name,
		Price:       in.Price.Round(2),
		WeightGrams: in.WeightGrams,
		CategoryIDs: slices.Clone(in.CategoryIDs),
		CreatedAt:   r.sc.s.now(),
	}
	st.variants[v.ID] = v
	return &v, nil
}

func (r *variantRepo) UpdatePrice(_ context.Context, id int64, price decimal.Decimal) error {
	defer r.sc.lock()()
	v, ok := r.sc.db().variants[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.Price = price.Round(2)
	r.sc.db().variants[id] = v
	return nil
}

type categoryRepo struct{ sc scope }

func (r *categoryRepo) List(_ context.Context) ([]domain.Category, error) {
	defer r.sc.lock()()
	out := make([]domain.Category, 0, len(r.sc.db().categories))
	for _, c := range r.sc.db().categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *categoryRepo) Upsert(_ context.Context, c domain.Category) (*domain.Category, error) {
	defer r.sc.lock()()
	st := r.sc.db()
	for id, existing := range st.categories {
		if existing.Slug == c.Slug {
			existing.Name = c.Name
			st.categories[id] = existing
			return &existing, nil
		}
	}
	c.ID = st.next("categories")
	c.CreatedAt = r.sc.s.now()
	st.categories[c.ID] = c
	return &c, nil
}

type customerRepo struct{ sc scope }

func (r *customerRepo) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	defer r.sc.lock()()
	st := r.sc.db()
	c.Email = strings.ToLower(c.Email)
	for _, existing := range st.customers {
		if existing.Email == c.Email {
			return nil, domain.ErrAlreadyExists
		}
	}
	if c.Role == "" {
		c.Role = domain.RoleCustomer
	}
	c.ID = st.next("customers")
	c.CreatedAt = r.sc.s.now()
	st.customers[c.ID] = c
	return &c, nil
}

func (r *customerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	defer r.sc.lock()()
	for _, c := range r.sc.db().customers {
		if strings.EqualFold(c.Email, email) {
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *customerRepo) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	defer r.sc.lock()()
	c, ok := r.sc.db().customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
