package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	// CreateExclusive deactivates every active session for the user and
	// inserts the new one inside a single transaction.
	CreateExclusive(ctx context.Context, session *Session) error
	FindActiveByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	Deactivate(ctx context.Context, id snowflake.ID) error
	UpdateLastActivity(ctx context.Context, id snowflake.ID, at time.Time) error
}

type Service interface {
	Create(ctx context.Context, userID snowflake.ID) (string, error)
	Validate(ctx context.Context, rawToken string) (snowflake.ID, error)
	Revoke(ctx context.Context, rawToken string) error
}
