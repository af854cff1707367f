package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/clock"
	"github.com/fitretto/gymbill/internal/subscription/domain"
	"go.uber.org/zap"
)

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func New(log *zap.Logger, repo domain.Repository, clk clock.Clock) domain.Service {
	return &Service{
		log:   log.Named("subscription.service"),
		repo:  repo,
		clock: clk,
	}
}

func (s *Service) Upsert(ctx context.Context, sub domain.Subscription) (*domain.Subscription, error) {
	sub.ID = strings.TrimSpace(sub.ID)
	if sub.ID == "" {
		return nil, domain.ErrMissingID
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.clock.Now()
	}
	return s.repo.Upsert(ctx, &sub)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Subscription, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListForUser(ctx context.Context, userID snowflake.ID) ([]domain.Subscription, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ActiveSiblings(ctx context.Context, userID snowflake.ID, exceptID string) ([]domain.Subscription, error) {
	return s.repo.ListActiveByUserExcept(ctx, userID, exceptID)
}

func (s *Service) ActiveOnPrice(ctx context.Context, userID snowflake.ID, priceID string) (*domain.Subscription, error) {
	return s.repo.FindActiveByUserAndPrice(ctx, userID, priceID)
}

func (s *Service) SetCancelFlag(ctx context.Context, id string, cancel bool) error {
	return s.repo.SetCancelAtPeriodEnd(ctx, id, cancel)
}

func (s *Service) MarkCanceled(ctx context.Context, id string) error {
	return s.repo.SetStatus(ctx, id, domain.StatusCanceled)
}

func (s *Service) BindOwner(ctx context.Context, id string, userID snowflake.ID) error {
	return s.repo.BindUser(ctx, id, userID)
}
