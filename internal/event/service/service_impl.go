package service

import (
	"context"
	"strings"

	"github.com/fitretto/gymbill/internal/clock"
	"github.com/fitretto/gymbill/internal/event/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func New(log *zap.Logger, repo domain.Repository, clk clock.Clock) domain.Service {
	return &Service{
		log:   log.Named("event.service"),
		repo:  repo,
		clock: clk,
	}
}

func (s *Service) IsProcessed(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, nil
	}
	return s.repo.Exists(ctx, id)
}

func (s *Service) MarkProcessed(ctx context.Context, id, eventType string, payload []byte) error {
	return s.repo.Insert(ctx, &domain.ProcessedEvent{
		ID:          strings.TrimSpace(id),
		EventType:   strings.TrimSpace(eventType),
		Payload:     datatypes.JSON(payload),
		ProcessedAt: s.clock.Now(),
	})
}
