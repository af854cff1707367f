package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/auth/password"
	"github.com/fitretto/gymbill/internal/stripeapi"
	"github.com/fitretto/gymbill/internal/user/domain"
	"go.uber.org/zap"
)

const minPasswordLength = 8

type Service struct {
	log       *zap.Logger
	repo      domain.Repository
	customers domain.CustomerGateway
	genID     *snowflake.Node
}

func New(log *zap.Logger, repo domain.Repository, customers domain.CustomerGateway, genID *snowflake.Node) domain.Service {
	return &Service{
		log:       log.Named("user.service"),
		repo:      repo,
		customers: customers,
		genID:     genID,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultName(email)
	}
	user := &domain.User{
		ID:              s.genID.Generate(),
		Email:           email,
		PasswordHash:    hashed,
		Name:            name,
		Phone:           optional(req.Phone),
		Birthdate:       optional(req.Birthdate),
		TermsAccepted:   req.TermsAccepted,
		PrivacyAccepted: req.PrivacyAccepted,
		IsActive:        true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) Authenticate(ctx context.Context, email, rawPassword string) (*domain.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(rawPassword) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive || !password.Verify(rawPassword, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

// EnsureStripeCustomer returns the user's processor customer reference,
// creating one lazily on first payment interaction. A stored reference that
// no longer resolves is replaced.
func (s *Service) EnsureStripeCustomer(ctx context.Context, id snowflake.ID) (string, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		existing, err := s.customers.RetrieveCustomer(ctx, *user.StripeCustomerID)
		if err == nil && !existing.Deleted {
			return existing.ID, nil
		}
		s.log.Warn("stored stripe customer no longer resolves, recreating",
			zap.String("user_id", user.ID.String()),
			zap.String("customer_id", *user.StripeCustomerID),
		)
	}

	created, err := s.customers.CreateCustomer(ctx, stripeapi.CustomerParams{
		Email: user.Email,
		Name:  user.Name,
		Metadata: map[string]string{
			"user_id": user.ID.String(),
		},
	})
	if err != nil {
		return "", err
	}

	if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{
		"stripe_customer_id": created.ID,
	}); err != nil {
		return "", err
	}

	return created.ID, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", errors.New("empty email")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", err
	}
	return email, nil
}

func defaultName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
