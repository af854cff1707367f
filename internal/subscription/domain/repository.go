package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	// Upsert inserts or overwrites the row with the latest external state.
	// The owning user id is only overwritten when the incoming value is
	// non-nil.
	Upsert(ctx context.Context, sub *Subscription) (*Subscription, error)
	FindByID(ctx context.Context, id string) (*Subscription, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]Subscription, error)
	ListActiveByUserExcept(ctx context.Context, userID snowflake.ID, exceptID string) ([]Subscription, error)
	FindActiveByUserAndPrice(ctx context.Context, userID snowflake.ID, priceID string) (*Subscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) error
	SetStatus(ctx context.Context, id string, status string) error
	BindUser(ctx context.Context, id string, userID snowflake.ID) error
}

type Service interface {
	Upsert(ctx context.Context, sub Subscription) (*Subscription, error)
	Get(ctx context.Context, id string) (*Subscription, error)
	ListForUser(ctx context.Context, userID snowflake.ID) ([]Subscription, error)
	ActiveSiblings(ctx context.Context, userID snowflake.ID, exceptID string) ([]Subscription, error)
	ActiveOnPrice(ctx context.Context, userID snowflake.ID, priceID string) (*Subscription, error)
	SetCancelFlag(ctx context.Context, id string, cancel bool) error
	MarkCanceled(ctx context.Context, id string) error
	BindOwner(ctx context.Context, id string, userID snowflake.ID) error
}
