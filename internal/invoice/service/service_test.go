package service

import (
	"context"
	"testing"
	"time"

	"github.com/fitretto/gymbill/internal/clock"
	"github.com/fitretto/gymbill/internal/invoice/domain"
	"github.com/fitretto/gymbill/internal/invoice/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Invoice{}))

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	return New(zap.NewNop(), repository.New(db), clk), clk
}

func TestRecordWriteOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Record(ctx, domain.Invoice{
		ID:             "in_1",
		SubscriptionID: "sub_1",
		Status:         "paid",
		AmountDue:      999,
		Currency:       "usd",
		Created:        1700000000,
	})
	require.NoError(t, err)

	// A later conflicting snapshot never overwrites the first observation.
	second, err := svc.Record(ctx, domain.Invoice{
		ID:        "in_1",
		Status:    "void",
		AmountDue: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := svc.Get(ctx, "in_1")
	require.NoError(t, err)
	assert.Equal(t, "paid", stored.Status)
	assert.Equal(t, int64(999), stored.AmountDue)
}

func TestRecordRequiresID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Record(context.Background(), domain.Invoice{Status: "paid"})
	assert.ErrorIs(t, err, domain.ErrMissingID)
}

func TestRecordFillsCreatedFromClock(t *testing.T) {
	svc, clk := newTestService(t)

	stored, err := svc.Record(context.Background(), domain.Invoice{ID: "in_2"})
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Unix(), stored.Created)
}

func TestListBySubscription(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"in_a", "in_b"} {
		_, err := svc.Record(ctx, domain.Invoice{ID: id, SubscriptionID: "sub_1"})
		require.NoError(t, err)
	}
	_, err := svc.Record(ctx, domain.Invoice{ID: "in_c", SubscriptionID: "sub_2"})
	require.NoError(t, err)

	invoices, err := svc.ListBySubscription(ctx, "sub_1")
	require.NoError(t, err)
	assert.Len(t, invoices, 2)
}
