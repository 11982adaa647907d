package memory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// AddCustomer stores a customer and returns it.
func (s *Store) AddCustomer(email string, role domain.Role) domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := domain.Customer{ID: s.data.next("customers"), Email: email, Role: role, CreatedAt: s.now()}
	s.data.customers[c.ID] = c
	return c
}

// AddVariant stores a product with one variant at the given price and stock.
// The stock is written directly and leaves no ledger entry.
func (s *Store) AddVariant(sku, price string, stock int64, categoryIDs ...int64) domain.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	p := domain.Product{ID: s.data.next("products"), Name: sku, CreatedAt: now}
	s.data.products[p.ID] = p
	v := domain.Variant{
		ID:              s.data.next("variants"),
		ProductID:       p.ID,
		SKU:             sku,
		Name:            sku,
		Price:           decimal.RequireFromString(price),
		QuantityInStock: stock,
		CategoryIDs:     categoryIDs,
		CreatedAt:       now,
	}
	s.data.variants[v.ID] = v
	return v
}

// AddPromotion stores p, normalising its code.
func (s *Store) AddPromotion(p domain.Promotion) domain.Promotion {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.data.next("promotions")
	p.Code = domain.NormalizeCode(p.Code)
	p.CreatedAt = s.now()
	s.data.promotions[p.ID] = p
	return p
}

// Stock returns the cached quantity of a variant and panics when absent.
func (s *Store) Stock(variantID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data.variants[variantID]
	if !ok {
		panic(fmt.Sprintf("memory: unknown variant %d", variantID))
	}
	return v.QuantityInStock
}

// MovementCount returns how many ledger rows exist across all variants.
func (s *Store) MovementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.movements)
}
