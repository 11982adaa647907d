package customer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/notify"
	custrepo "storefront/internal/repository/customer"
)

// Service handles customer registration and profile reads.
type Service struct {
	repo        custrepo.Repository
	dispatcher  *notify.Dispatcher
	logger      *zap.Logger
	passwordMin int
	hashCost    int
}

// New creates a Service with sane defaults.
func New(repo custrepo.Repository, dispatcher *notify.Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:        repo,
		dispatcher:  dispatcher,
		logger:      logger,
		passwordMin: 8,
		hashCost:    bcrypt.DefaultCost,
	}
}

// RegisterInput captures fields expected by the registration endpoint.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register creates a customer account and sends a welcome notification.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.Customer, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, domain.Invalid("email required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.Invalid("email is not a valid address")
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	c, err := s.repo.Create(ctx, domain.Customer{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         domain.RoleCustomer,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("email %s: %w", email, domain.ErrAlreadyExists)
		}
		return nil, err
	}

	s.logger.Info("customer registered", zap.Int64("customer_id", c.ID))
	s.dispatcher.Dispatch(ctx, notify.Message{
		Kind:      notify.KindWelcome,
		Recipient: "user:" + strconv.FormatInt(c.ID, 10),
		Payload: map[string]any{
			"email":     c.Email,
			"firstName": c.FirstName,
		},
	})
	return c, nil
}

// Get returns the customer with the given id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.repo.GetByID(ctx, id)
}

// CheckPassword reports whether password matches the stored hash for email.
// Unknown emails and wrong passwords both yield ErrUnauthorized.
func (s *Service) CheckPassword(ctx context.Context, email, password string) (*domain.Customer, error) {
	c, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(strings.TrimSpace(password))); err != nil {
		return nil, domain.ErrUnauthorized
	}
	return c, nil
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return domain.Invalid(fmt.Sprintf("password must be at least %d characters", min))
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return domain.Invalid("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
