package inventory

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/repository"
	inventoryrepo "storefront/internal/repository/inventory"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	systemActor      = "system"
)

type MovementInput struct {
	VariantID   int64               `json:"-"`
	Type        domain.MovementType `json:"type"`
	Delta       int64               `json:"delta"`
	ReferenceID string              `json:"referenceId,omitempty"`
	Reason      string              `json:"reason,omitempty"`
	Actor       string              `json:"-"`
}

type MovementResult struct {
	QuantityBefore int64                `json:"quantityBefore"`
	QuantityAfter  int64                `json:"quantityAfter"`
	Movement       domain.StockMovement `json:"movement"`
}

// BackInStock reports whether the movement took the variant from none to some.
func (r MovementResult) BackInStock() bool {
	return r.QuantityBefore <= 0 && r.QuantityAfter > 0
}

type Service struct {
	tx         repository.TxManager
	repo       inventoryrepo.Repository
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

func New(tx repository.TxManager, repo inventoryrepo.Repository, dispatcher *notify.Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tx: tx, repo: repo, dispatcher: dispatcher, logger: logger}
}

// ApplyMovement records one stock change in its own transaction.
func (s *Service) ApplyMovement(ctx context.Context, in MovementInput) (*MovementResult, error) {
	var res MovementResult
	err := s.tx.WithinTx(ctx, func(repos repository.TxRepos) error {
		var err error
		res, err = ApplyMovementTx(ctx, repos, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock movement applied",
		zap.Int64("variant_id", in.VariantID),
		zap.String("type", string(in.Type)),
		zap.Int64("delta", in.Delta),
		zap.Int64("quantity_after", res.QuantityAfter),
	)
	s.NotifyBackInStock(ctx, res)
	return &res, nil
}

// ApplyMovementTx is the only code path that changes quantity_in_stock. It
// must run inside the caller's transaction; the caller is responsible for
// NotifyBackInStock once that transaction has committed.
func ApplyMovementTx(ctx context.Context, repos repository.TxRepos, in MovementInput) (MovementResult, error) {
	if err := validate(in); err != nil {
		return MovementResult{}, err
	}
	if in.Actor == "" {
		in.Actor = systemActor
	}

	inv := repos.Inventory()
	before, err := inv.LockQuantity(ctx, in.VariantID)
	if err != nil {
		return MovementResult{}, fmt.Errorf("variant %d: %w", in.VariantID, err)
	}
	after := before + in.Delta
	if after < 0 {
		return MovementResult{}, fmt.Errorf("variant %d has %d, requested %d: %w", in.VariantID, before, -in.Delta, domain.ErrInsufficientStock)
	}
	if err := inv.SetQuantity(ctx, in.VariantID, after); err != nil {
		return MovementResult{}, err
	}
	m, err := inv.AppendMovement(ctx, domain.StockMovement{
		VariantID:      in.VariantID,
		Type:           in.Type,
		Delta:          in.Delta,
		QuantityBefore: before,
		QuantityAfter:  after,
		ReferenceID:    in.ReferenceID,
		Reason:         in.Reason,
		Actor:          in.Actor,
	})
	if err != nil {
		return MovementResult{}, err
	}
	return MovementResult{QuantityBefore: before, QuantityAfter: after, Movement: *m}, nil
}

func validate(in MovementInput) error {
	if !in.Type.Valid() {
		return domain.Invalid(fmt.Sprintf("unknown movement type %q", in.Type))
	}
	if in.Delta == 0 {
		return domain.Invalid("delta must not be zero")
	}
	switch in.Type {
	case domain.MovementSale:
		if in.Delta > 0 {
			return domain.Invalid("sale delta must be negative")
		}
	case domain.MovementRestock, domain.MovementReturn:
		if in.Delta < 0 {
			return domain.Invalid(fmt.Sprintf("%s delta must be positive", in.Type))
		}
	}
	return nil
}

// NotifyBackInStock dispatches back_in_stock for every result that crossed
// from zero. Call it only after the owning transaction committed.
func (s *Service) NotifyBackInStock(ctx context.Context, results ...MovementResult) {
	for _, r := range results {
		if !r.BackInStock() {
			continue
		}
		s.dispatcher.Dispatch(ctx, notify.Message{
			Kind:      notify.KindBackInStock,
			Recipient: "variant:" + strconv.FormatInt(r.Movement.VariantID, 10),
			Payload: map[string]any{
				"variantId": r.Movement.VariantID,
				"quantity":  r.QuantityAfter,
			},
		})
	}
}

// ListMovements returns the newest movements of a variant first.
func (s *Service) ListMovements(ctx context.Context, variantID int64, limit int) ([]domain.StockMovement, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if _, err := s.repo.Quantity(ctx, variantID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, variantID, limit)
}

func (s *Service) GetStock(ctx context.Context, variantID int64) (int64, error) {
	return s.repo.Quantity(ctx, variantID)
}
