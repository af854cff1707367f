package service

import (
	"context"
	"strings"

	"github.com/fitretto/gymbill/internal/clock"
	"github.com/fitretto/gymbill/internal/invoice/domain"
	"go.uber.org/zap"
)

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func New(log *zap.Logger, repo domain.Repository, clk clock.Clock) domain.Service {
	return &Service{
		log:   log.Named("invoice.service"),
		repo:  repo,
		clock: clk,
	}
}

// Record writes the invoice once; a duplicate id is a no-op returning the
// previously observed row.
func (s *Service) Record(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	invoice.ID = strings.TrimSpace(invoice.ID)
	if invoice.ID == "" {
		return nil, domain.ErrMissingID
	}
	if invoice.Created == 0 {
		invoice.Created = s.clock.Now().Unix()
	}
	return s.repo.InsertOnce(ctx, &invoice)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListBySubscription(ctx context.Context, subscriptionID string) ([]domain.Invoice, error) {
	return s.repo.ListBySubscription(ctx, subscriptionID)
}
