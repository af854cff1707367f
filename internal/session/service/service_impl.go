package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/clock"
	"github.com/fitretto/gymbill/internal/config"
	"github.com/fitretto/gymbill/internal/session/domain"
	"go.uber.org/zap"
)

const (
	tokenBytes = 32

	defaultSessionTTL = 24 * time.Hour
)

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
	genID *snowflake.Node
	ttl   time.Duration
}

func New(cfg config.Config, log *zap.Logger, repo domain.Repository, clk clock.Clock, genID *snowflake.Node) domain.Service {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Service{
		log:   log.Named("session.service"),
		repo:  repo,
		clock: clk,
		genID: genID,
		ttl:   ttl,
	}
}

// Create issues a fresh bearer token. Any previously active session for the
// user is deactivated in the same transaction, so at most one session is
// active per user.
func (s *Service) Create(ctx context.Context, userID snowflake.ID) (string, error) {
	rawToken, err := newToken()
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:           s.genID.Generate(),
		UserID:       userID,
		TokenHash:    hashToken(rawToken),
		IsActive:     true,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.repo.CreateExclusive(ctx, session); err != nil {
		return "", err
	}

	return rawToken, nil
}

// Validate resolves a token to its owning user. Sessions older than the
// configured TTL are flipped inactive on first use after expiry.
func (s *Service) Validate(ctx context.Context, rawToken string) (snowflake.ID, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return 0, domain.ErrSessionNotFound
	}

	session, err := s.repo.FindActiveByTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	if now.Sub(session.CreatedAt) > s.ttl {
		if err := s.repo.Deactivate(ctx, session.ID); err != nil {
			s.log.Warn("failed to deactivate expired session",
				zap.String("session_id", session.ID.String()),
				zap.Error(err),
			)
		}
		return 0, domain.ErrSessionExpired
	}

	if err := s.repo.UpdateLastActivity(ctx, session.ID, now); err != nil {
		s.log.Warn("failed to update session activity",
			zap.String("session_id", session.ID.String()),
			zap.Error(err),
		)
	}

	return session.UserID, nil
}

func (s *Service) Revoke(ctx context.Context, rawToken string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.ErrSessionNotFound
	}

	session, err := s.repo.FindActiveByTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		return err
	}
	return s.repo.Deactivate(ctx, session.ID)
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
