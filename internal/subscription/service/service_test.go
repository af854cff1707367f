package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/clock"
	"github.com/fitretto/gymbill/internal/subscription/domain"
	"github.com/fitretto/gymbill/internal/subscription/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Subscription{}))

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	return New(zap.NewNop(), repository.New(db), clk)
}

func userID(v int64) *snowflake.ID {
	id := snowflake.ID(v)
	return &id
}

func epoch(v int64) *int64 { return &v }

func TestUpsertInsertsThenOverwrites(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Upsert(ctx, domain.Subscription{
		ID:               "sub_1",
		UserID:           userID(3),
		CustomerID:       "cus_3",
		PriceID:          "price_basic",
		Status:           "trialing",
		CurrentPeriodEnd: epoch(1_700_000_000),
	})
	require.NoError(t, err)
	assert.Equal(t, "trialing", created.Status)

	updated, err := svc.Upsert(ctx, domain.Subscription{
		ID:               "sub_1",
		CustomerID:       "cus_3",
		PriceID:          "price_basic",
		Status:           "active",
		CurrentPeriodEnd: epoch(1_702_600_000),
	})
	require.NoError(t, err)
	assert.Equal(t, "active", updated.Status)
	assert.Equal(t, int64(1_702_600_000), *updated.CurrentPeriodEnd)

	// The event above carried no user id; ownership survives.
	require.NotNil(t, updated.UserID)
	assert.Equal(t, snowflake.ID(3), *updated.UserID)
}

func TestUpsertConvergesEitherOrder(t *testing.T) {
	createdState := domain.Subscription{
		ID:         "sub_x",
		UserID:     userID(5),
		CustomerID: "cus_5",
		PriceID:    "price_p1",
		Status:     "active",
	}
	updatedState := domain.Subscription{
		ID:               "sub_x",
		CustomerID:       "cus_5",
		PriceID:          "price_p1",
		Status:           "active",
		CurrentPeriodEnd: epoch(1_710_000_000),
		LatestInvoice:    "in_9",
	}

	final := func(t *testing.T, order []domain.Subscription) domain.Subscription {
		svc := newTestService(t)
		ctx := context.Background()
		var last *domain.Subscription
		for _, sub := range order {
			var err error
			last, err = svc.Upsert(ctx, sub)
			require.NoError(t, err)
		}
		return *last
	}

	t.Run("created then updated", func(t *testing.T) {
		got := final(t, []domain.Subscription{createdState, updatedState})
		require.NotNil(t, got.UserID)
		assert.Equal(t, snowflake.ID(5), *got.UserID)
		assert.Equal(t, "in_9", got.LatestInvoice)
		assert.Equal(t, int64(1_710_000_000), *got.CurrentPeriodEnd)
	})

	t.Run("updated then created", func(t *testing.T) {
		got := final(t, []domain.Subscription{updatedState, createdState})
		require.NotNil(t, got.UserID)
		assert.Equal(t, snowflake.ID(5), *got.UserID)
		// The later "created" event carries no period end; latest state wins.
		assert.Nil(t, got.CurrentPeriodEnd)
	})
}

func TestActiveSiblingsAndCancelFlag(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, sub := range []domain.Subscription{
		{ID: "sub_a", UserID: userID(3), PriceID: "price_p1", Status: "active"},
		{ID: "sub_b", UserID: userID(3), PriceID: "price_p2", Status: "active"},
		{ID: "sub_c", UserID: userID(3), PriceID: "price_p3", Status: "canceled"},
		{ID: "sub_d", UserID: userID(4), PriceID: "price_p1", Status: "active"},
	} {
		_, err := svc.Upsert(ctx, sub)
		require.NoError(t, err)
	}

	siblings, err := svc.ActiveSiblings(ctx, 3, "sub_b")
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	assert.Equal(t, "sub_a", siblings[0].ID)

	require.NoError(t, svc.SetCancelFlag(ctx, "sub_a", true))
	got, err := svc.Get(ctx, "sub_a")
	require.NoError(t, err)
	assert.True(t, got.CancelAtPeriodEnd)
	assert.Equal(t, "active", got.Status)
}

func TestMarkCanceledMissingRow(t *testing.T) {
	svc := newTestService(t)
	err := svc.MarkCanceled(context.Background(), "sub_ghost")
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}

func TestActiveOnPrice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, domain.Subscription{ID: "sub_1", UserID: userID(8), PriceID: "price_p1", Status: "active"})
	require.NoError(t, err)

	got, err := svc.ActiveOnPrice(ctx, 8, "price_p1")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", got.ID)

	_, err = svc.ActiveOnPrice(ctx, 8, "price_other")
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}
