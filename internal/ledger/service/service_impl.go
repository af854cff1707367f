package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/clock"
	"github.com/fitretto/gymbill/internal/ledger/domain"
	"github.com/fitretto/gymbill/internal/observability/metrics"
	"github.com/fitretto/gymbill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    domain.Repository
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	repo    domain.Repository
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("ledger.service"),
		repo:    p.Repo,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

// Record writes the entry once. A duplicate session id returns the original
// row unchanged.
func (s *Service) Record(ctx context.Context, entry domain.Entry) (*domain.Entry, error) {
	entry.SessionID = strings.TrimSpace(entry.SessionID)
	if entry.SessionID == "" {
		return nil, domain.ErrMissingSession
	}
	if entry.Amount < 0 {
		return nil, domain.ErrInvalidAmount
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}

	stored, err := s.repo.InsertOnce(ctx, &entry)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLedgerEntry()
	return stored, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (*domain.Entry, error) {
	return s.repo.FindBySessionID(ctx, sessionID)
}

func (s *Service) HistoryForUser(ctx context.Context, userID snowflake.ID) ([]domain.Entry, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context, page pagination.Pagination) ([]domain.Entry, *pagination.PageInfo, error) {
	return s.repo.List(ctx, page)
}
