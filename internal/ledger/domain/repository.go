package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/pkg/db/pagination"
)

type Repository interface {
	// InsertOnce writes the entry unless a row with the same session id
	// already exists, in which case the existing row is returned.
	InsertOnce(ctx context.Context, entry *Entry) (*Entry, error)
	FindBySessionID(ctx context.Context, sessionID string) (*Entry, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]Entry, error)
	List(ctx context.Context, page pagination.Pagination) ([]Entry, *pagination.PageInfo, error)
}

type Service interface {
	Record(ctx context.Context, entry Entry) (*Entry, error)
	Get(ctx context.Context, sessionID string) (*Entry, error)
	HistoryForUser(ctx context.Context, userID snowflake.ID) ([]Entry, error)
	List(ctx context.Context, page pagination.Pagination) ([]Entry, *pagination.PageInfo, error)
}
