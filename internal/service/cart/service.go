package cart

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
)

type Service struct {
	repo        cartrepo.Repository
	variantRepo variantRepo
}

type variantRepo interface {
	GetByID(ctx context.Context, id int64) (*domain.Variant, error)
}

func New(repo cartrepo.Repository, variantRepo variantRepo) *Service {
	return &Service{repo: repo, variantRepo: variantRepo}
}

type AddLineInput struct {
	VariantID int64 `json:"variantId"`
	Quantity  int64 `json:"quantity"`
}

// AddLine adds qty units of a variant to the user's cart, creating the cart
// on first use. Adding a variant already in the cart increases its quantity.
func (s *Service) AddLine(ctx context.Context, userID int64, in AddLineInput) (*domain.Cart, error) {
	if in.Quantity < 1 {
		return nil, domain.Invalid("quantity must be at least 1")
	}
	if _, err := s.variantRepo.GetByID(ctx, in.VariantID); err != nil {
		return nil, fmt.Errorf("variant %d: %w", in.VariantID, err)
	}
	cart, err := s.repo.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.UpsertLine(ctx, cart.ID, in.VariantID, in.Quantity); err != nil {
		return nil, err
	}
	return s.GetLines(ctx, userID)
}

// GetLines returns the cart priced at current variant prices.
func (s *Service) GetLines(ctx context.Context, userID int64) (*domain.Cart, error) {
	lines, err := s.repo.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart := &domain.Cart{UserID: userID, Lines: lines}
	if len(lines) > 0 {
		cart.ID = lines[0].CartID
	}
	return cart, nil
}

func (s *Service) UpdateLineQty(ctx context.Context, userID, lineID, qty int64) (*domain.Cart, error) {
	if qty < 1 {
		return nil, domain.Invalid("quantity must be at least 1")
	}
	if err := s.repo.UpdateLineQty(ctx, userID, lineID, qty); err != nil {
		return nil, err
	}
	return s.GetLines(ctx, userID)
}

func (s *Service) RemoveLine(ctx context.Context, userID, lineID int64) (*domain.Cart, error) {
	if err := s.repo.DeleteLine(ctx, userID, lineID); err != nil {
		return nil, err
	}
	return s.GetLines(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID int64) error {
	_, err := s.repo.Clear(ctx, userID)
	return err
}
