package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/clock"
	"github.com/fitretto/gymbill/internal/config"
	eventdomain "github.com/fitretto/gymbill/internal/event/domain"
	eventrepo "github.com/fitretto/gymbill/internal/event/repository"
	eventservice "github.com/fitretto/gymbill/internal/event/service"
	invoicedomain "github.com/fitretto/gymbill/internal/invoice/domain"
	invoicerepo "github.com/fitretto/gymbill/internal/invoice/repository"
	invoiceservice "github.com/fitretto/gymbill/internal/invoice/service"
	ledgerdomain "github.com/fitretto/gymbill/internal/ledger/domain"
	ledgerrepo "github.com/fitretto/gymbill/internal/ledger/repository"
	ledgerservice "github.com/fitretto/gymbill/internal/ledger/service"
	"github.com/fitretto/gymbill/internal/stripeapi"
	subdomain "github.com/fitretto/gymbill/internal/subscription/domain"
	subrepo "github.com/fitretto/gymbill/internal/subscription/repository"
	subservice "github.com/fitretto/gymbill/internal/subscription/service"
	"github.com/fitretto/gymbill/pkg/db/pagination"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "whsec_test"

type fakeGateway struct {
	sessions      []stripeapi.CheckoutSession
	listErr       error
	canceledIDs   []string
	cancelErr     error
	listRequests  int
	lastCustomer  string
	lastListLimit int
}

func (g *fakeGateway) ListCheckoutSessions(_ context.Context, customerID string, limit int) ([]stripeapi.CheckoutSession, error) {
	g.listRequests++
	g.lastCustomer = customerID
	g.lastListLimit = limit
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.sessions, nil
}

func (g *fakeGateway) SetCancelAtPeriodEnd(_ context.Context, id string, cancel bool) (*stripeapi.Subscription, error) {
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	g.canceledIDs = append(g.canceledIDs, id)
	return &stripeapi.Subscription{ID: id, CancelAtPeriodEnd: cancel}, nil
}

type engineEnv struct {
	engine  *Engine
	clock   *clock.FakeClock
	gateway *fakeGateway
	events  eventdomain.Service
	ledger  ledgerdomain.Service
	subs    subdomain.Service
	invs    invoicedomain.Service
}

func newTestEngine(t *testing.T) *engineEnv {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&eventdomain.ProcessedEvent{},
		&ledgerdomain.Entry{},
		&subdomain.Subscription{},
		&invoicedomain.Invoice{},
	))

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	gateway := &fakeGateway{}

	events := eventservice.New(log, eventrepo.New(db), clk)
	ledger := ledgerservice.New(ledgerservice.Params{
		Log:   log,
		Repo:  ledgerrepo.New(db),
		Clock: clk,
	})
	subs := subservice.New(log, subrepo.New(db), clk)
	invs := invoiceservice.New(log, invoicerepo.New(db), clk)

	engine := New(Params{
		Log: log,
		Config: config.Config{
			StripeWebhookSecret: testSecret,
			WebhookTolerance:    5 * time.Minute,
		},
		Clock:         clk,
		Events:        events,
		Ledger:        ledger,
		Subscriptions: subs,
		Invoices:      invs,
		Gateway:       gateway,
	})

	return &engineEnv{
		engine:  engine,
		clock:   clk,
		gateway: gateway,
		events:  events,
		ledger:  ledger,
		subs:    subs,
		invs:    invs,
	}
}

func (e *engineEnv) deliver(t *testing.T, id, eventType string, object map[string]any) error {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":      id,
		"type":    eventType,
		"created": e.clock.Now().Unix(),
		"data":    map[string]any{"object": object},
	})
	require.NoError(t, err)
	return e.engine.Ingest(context.Background(), payload, stripeapi.SignPayload(payload, testSecret, e.clock.Now()))
}

func TestIngestRejectsBadSignature(t *testing.T) {
	env := newTestEngine(t)

	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`)
	header := stripeapi.SignPayload(payload, "whsec_other", env.clock.Now())

	err := env.engine.Ingest(context.Background(), payload, header)
	assert.ErrorIs(t, err, stripeapi.ErrInvalidSignature)

	processed, err := env.events.IsProcessed(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestIngestRejectsMalformedEnvelope(t *testing.T) {
	env := newTestEngine(t)

	payload := []byte(`{"type":"invoice.paid"}`)
	header := stripeapi.SignPayload(payload, testSecret, env.clock.Now())

	err := env.engine.Ingest(context.Background(), payload, header)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDoubleDeliveryIsIdempotent(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	object := map[string]any{
		"id":             "cs_1",
		"mode":           "payment",
		"amount_total":   4200,
		"currency":       "usd",
		"payment_status": "paid",
		"created":        env.clock.Now().Unix(),
		"metadata":       map[string]string{"user_id": "7", "product_name": "10-Class Pack"},
	}
	require.NoError(t, env.deliver(t, "evt_1", EventCheckoutCompleted, object))
	require.NoError(t, env.deliver(t, "evt_1", EventCheckoutCompleted, object))

	entries, _, err := env.ledger.List(ctx, paginationAll())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cs_1", entries[0].SessionID)
	assert.Equal(t, int64(4200), entries[0].Amount)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, snowflake.ID(7), *entries[0].UserID)
	assert.Equal(t, "10-Class Pack", entries[0].ProductName)

	processed, err := env.events.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestUnhandledTypeWritesNothing(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, env.deliver(t, "evt_1", "charge.refunded", map[string]any{"id": "ch_1"}))

	// Unhandled types are acknowledged but never marked, so a later
	// handled event reusing nothing of theirs stays unaffected.
	processed, err := env.events.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, processed)

	entries, _, err := env.ledger.List(ctx, paginationAll())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCheckoutWithoutUserIDRecordsAnonymousEntry(t *testing.T) {
	env := newTestEngine(t)

	require.NoError(t, env.deliver(t, "evt_1", EventCheckoutCompleted, map[string]any{
		"id":             "cs_1",
		"mode":           "payment",
		"amount_total":   1500,
		"currency":       "usd",
		"payment_status": "paid",
		"metadata":       map[string]string{"user_id": ""},
	}))

	entries, _, err := env.ledger.List(context.Background(), paginationAll())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].UserID)
}

func TestSubscriptionCheckoutBindsOwnerEarly(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, env.deliver(t, "evt_1", EventCheckoutCompleted, map[string]any{
		"id":           "cs_1",
		"mode":         "subscription",
		"customer":     "cus_1",
		"subscription": "sub_1",
		"metadata":     map[string]string{"user_id": "7"},
	}))

	sub, err := env.subs.Get(ctx, "sub_1")
	require.NoError(t, err)
	require.NotNil(t, sub.UserID)
	assert.Equal(t, snowflake.ID(7), *sub.UserID)
	assert.Equal(t, "incomplete", sub.Status)

	// The subscription event that follows overwrites external state but
	// keeps the bound owner.
	require.NoError(t, env.deliver(t, "evt_2", EventSubscriptionCreated, map[string]any{
		"id":       "sub_1",
		"customer": "cus_1",
		"status":   "active",
		"items":    map[string]any{"data": []map[string]any{{"price": map[string]any{"id": "price_1"}}}},
	}))

	sub, err = env.subs.Get(ctx, "sub_1")
	require.NoError(t, err)
	require.NotNil(t, sub.UserID)
	assert.Equal(t, snowflake.ID(7), *sub.UserID)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, "price_1", sub.PriceID)
}

func TestInvoicePaidIsWriteOnce(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, env.deliver(t, "evt_1", EventInvoicePaid, map[string]any{
		"id":           "in_1",
		"subscription": "sub_1",
		"status":       "paid",
		"amount_due":   999,
		"currency":     "usd",
		"created":      1700000000,
	}))
	require.NoError(t, env.deliver(t, "evt_2", EventInvoicePaid, map[string]any{
		"id":         "in_1",
		"status":     "void",
		"amount_due": 0,
	}))

	inv, err := env.invs.Get(ctx, "in_1")
	require.NoError(t, err)
	assert.Equal(t, "paid", inv.Status)
	assert.Equal(t, int64(999), inv.AmountDue)
}

func TestInvoiceFailedLeavesRecordsUntouched(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, env.deliver(t, "evt_1", EventInvoiceFailed, map[string]any{
		"id":           "in_1",
		"subscription": "sub_1",
		"status":       "open",
	}))

	_, err := env.invs.Get(ctx, "in_1")
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)

	processed, err := env.events.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestPeriodEndFallbackChain(t *testing.T) {
	cases := []struct {
		name   string
		object map[string]any
		want   *int64
	}{
		{
			name: "object level wins",
			object: map[string]any{
				"current_period_end": 100,
				"trial_end":          200,
				"items":              map[string]any{"data": []map[string]any{{"current_period_end": 150}}},
			},
			want: epoch(100),
		},
		{
			name: "falls back to first item",
			object: map[string]any{
				"trial_end": 200,
				"items":     map[string]any{"data": []map[string]any{{"current_period_end": 150}}},
			},
			want: epoch(150),
		},
		{
			name:   "falls back to trial end",
			object: map[string]any{"trial_end": 200},
			want:   epoch(200),
		},
		{
			name:   "falls back to billing cycle anchor",
			object: map[string]any{"billing_cycle_anchor": 300},
			want:   epoch(300),
		},
		{
			name:   "all absent stays null",
			object: map[string]any{},
			want:   nil,
		},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEngine(t)
			object := map[string]any{"id": "sub_1", "customer": "cus_1", "status": "past_due"}
			for k, v := range tc.object {
				object[k] = v
			}
			require.NoError(t, env.deliver(t, fmt.Sprintf("evt_%d", i), EventSubscriptionCreated, object))

			sub, err := env.subs.Get(context.Background(), "sub_1")
			require.NoError(t, err)
			if tc.want == nil {
				assert.Nil(t, sub.CurrentPeriodEnd)
			} else {
				require.NotNil(t, sub.CurrentPeriodEnd)
				assert.Equal(t, *tc.want, *sub.CurrentPeriodEnd)
			}
		})
	}
}

func TestSubscriptionCreatedBackfillsOwner(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	env.gateway.sessions = []stripeapi.CheckoutSession{
		{ID: "cs_0", Subscription: "sub_other", Metadata: map[string]string{"user_id": "5"}},
		{ID: "cs_1", Subscription: "sub_1", Metadata: map[string]string{"user_id": "7"}},
	}

	require.NoError(t, env.deliver(t, "evt_1", EventSubscriptionCreated, map[string]any{
		"id":       "sub_1",
		"customer": "cus_1",
		"status":   "trialing",
	}))

	sub, err := env.subs.Get(ctx, "sub_1")
	require.NoError(t, err)
	require.NotNil(t, sub.UserID)
	assert.Equal(t, snowflake.ID(7), *sub.UserID)
	assert.Equal(t, "cus_1", env.gateway.lastCustomer)
}

func TestSingleActivePlanSchedulesSiblings(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	owner := snowflake.ID(7)
	_, err := env.subs.Upsert(ctx, subdomain.Subscription{
		ID:     "sub_old",
		UserID: &owner,
		Status: subdomain.StatusActive,
	})
	require.NoError(t, err)
	_, err = env.subs.Upsert(ctx, subdomain.Subscription{
		ID:     "sub_done",
		UserID: &owner,
		Status: subdomain.StatusCanceled,
	})
	require.NoError(t, err)

	require.NoError(t, env.deliver(t, "evt_1", EventSubscriptionCreated, map[string]any{
		"id":       "sub_new",
		"customer": "cus_1",
		"status":   "active",
		"metadata": map[string]string{"user_id": "7"},
	}))

	assert.Equal(t, []string{"sub_old"}, env.gateway.canceledIDs)

	old, err := env.subs.Get(ctx, "sub_old")
	require.NoError(t, err)
	assert.True(t, old.CancelAtPeriodEnd)
	assert.Equal(t, subdomain.StatusActive, old.Status)

	current, err := env.subs.Get(ctx, "sub_new")
	require.NoError(t, err)
	assert.False(t, current.CancelAtPeriodEnd)
}

func TestSingleActivePlanLocalFlagSurvivesGatewayFailure(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	owner := snowflake.ID(7)
	_, err := env.subs.Upsert(ctx, subdomain.Subscription{
		ID:     "sub_old",
		UserID: &owner,
		Status: subdomain.StatusActive,
	})
	require.NoError(t, err)

	env.gateway.cancelErr = fmt.Errorf("processor unavailable")

	require.NoError(t, env.deliver(t, "evt_1", EventSubscriptionCreated, map[string]any{
		"id":       "sub_new",
		"customer": "cus_1",
		"status":   "active",
		"metadata": map[string]string{"user_id": "7"},
	}))

	old, err := env.subs.Get(ctx, "sub_old")
	require.NoError(t, err)
	assert.True(t, old.CancelAtPeriodEnd)
}

func TestSubscriptionDeletedMarksCanceled(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	owner := snowflake.ID(7)
	_, err := env.subs.Upsert(ctx, subdomain.Subscription{
		ID:     "sub_1",
		UserID: &owner,
		Status: subdomain.StatusActive,
	})
	require.NoError(t, err)

	require.NoError(t, env.deliver(t, "evt_1", EventSubscriptionDeleted, map[string]any{"id": "sub_1"}))

	sub, err := env.subs.Get(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, subdomain.StatusCanceled, sub.Status)
}

func TestSubscriptionDeletedUnknownRowIsAcknowledged(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, env.deliver(t, "evt_1", EventSubscriptionDeleted, map[string]any{"id": "sub_missing"}))

	processed, err := env.events.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, processed)
}

func epoch(v int64) *int64 { return &v }

func paginationAll() pagination.Pagination {
	return pagination.Pagination{PageSize: 100}
}
