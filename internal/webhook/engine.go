package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fitretto/gymbill/internal/clock"
	"github.com/fitretto/gymbill/internal/config"
	eventdomain "github.com/fitretto/gymbill/internal/event/domain"
	invoicedomain "github.com/fitretto/gymbill/internal/invoice/domain"
	ledgerdomain "github.com/fitretto/gymbill/internal/ledger/domain"
	"github.com/fitretto/gymbill/internal/observability/metrics"
	"github.com/fitretto/gymbill/internal/stripeapi"
	subdomain "github.com/fitretto/gymbill/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ProcessorGateway is the slice of the payment processor API the engine
// needs: backfill lookups and best-effort sibling cancellation.
type ProcessorGateway interface {
	ListCheckoutSessions(ctx context.Context, customerID string, limit int) ([]stripeapi.CheckoutSession, error)
	SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*stripeapi.Subscription, error)
}

type Params struct {
	fx.In

	Log           *zap.Logger
	Config        config.Config
	Clock         clock.Clock
	Events        eventdomain.Service
	Ledger        ledgerdomain.Service
	Subscriptions subdomain.Service
	Invoices      invoicedomain.Service
	Gateway       ProcessorGateway
	Metrics       *metrics.Metrics `optional:"true"`
}

// Engine verifies, deduplicates, and dispatches webhook notifications,
// reconciling local records against the processor's state.
type Engine struct {
	log       *zap.Logger
	secret    string
	tolerance time.Duration
	clock     clock.Clock
	events    eventdomain.Service
	ledger    ledgerdomain.Service
	subs      subdomain.Service
	invoices  invoicedomain.Service
	gateway   ProcessorGateway
	metrics   *metrics.Metrics
}

func New(p Params) *Engine {
	return &Engine{
		log:       p.Log.Named("webhook.engine"),
		secret:    p.Config.StripeWebhookSecret,
		tolerance: p.Config.WebhookTolerance,
		clock:     p.Clock,
		events:    p.Events,
		ledger:    p.Ledger,
		subs:      p.Subscriptions,
		invoices:  p.Invoices,
		gateway:   p.Gateway,
		metrics:   p.Metrics,
	}
}

// Ingest processes one raw webhook delivery. Only signature and parse
// failures are returned; everything past the dedup gate is acknowledged, so
// the sender's retries stay cheap and safe.
func (e *Engine) Ingest(ctx context.Context, payload []byte, sigHeader string) error {
	if err := stripeapi.VerifySignature(payload, sigHeader, e.secret, e.tolerance, e.clock.Now()); err != nil {
		e.metrics.RecordWebhookEvent("unknown", "rejected")
		return err
	}

	env, err := ParseEnvelope(payload)
	if err != nil {
		e.metrics.RecordWebhookEvent("unknown", "rejected")
		return err
	}

	log := e.log.With(zap.String("event_id", env.ID), zap.String("event_type", env.Type))

	handler := e.handlerFor(env.Type)
	if handler == nil {
		// Unhandled types are acknowledged without a dedup marker: they
		// have no side effects to protect, and marking them would make a
		// later handled redelivery of a new type under the same id
		// impossible to distinguish.
		log.Warn("ignoring unhandled event type")
		e.metrics.RecordWebhookEvent(env.Type, "ignored")
		return nil
	}

	processed, err := e.events.IsProcessed(ctx, env.ID)
	if err != nil {
		log.Error("dedup lookup failed", zap.Error(err))
		e.metrics.RecordWebhookEvent(env.Type, "error")
		return nil
	}
	if processed {
		log.Debug("dropping duplicate delivery")
		e.metrics.RecordWebhookEvent(env.Type, "duplicate")
		return nil
	}

	// Marking before the handler runs makes the unique insert the
	// serialization point: of two concurrent identical deliveries, exactly
	// one proceeds past this line.
	if err := e.events.MarkProcessed(ctx, env.ID, env.Type, payload); err != nil {
		if errors.Is(err, eventdomain.ErrAlreadyProcessed) {
			log.Debug("lost dedup race, dropping delivery")
			e.metrics.RecordWebhookEvent(env.Type, "duplicate")
			return nil
		}
		log.Error("failed to mark event processed", zap.Error(err))
		e.metrics.RecordWebhookEvent(env.Type, "error")
		return nil
	}

	if err := handler(ctx, log, env); err != nil {
		// Handler failures past the gate never fail the webhook call.
		log.Error("event handler failed", zap.Error(err))
		e.metrics.RecordWebhookEvent(env.Type, "error")
		return nil
	}

	e.metrics.RecordWebhookEvent(env.Type, "processed")
	return nil
}

type handlerFunc func(ctx context.Context, log *zap.Logger, env *Envelope) error

func (e *Engine) handlerFor(eventType string) handlerFunc {
	switch eventType {
	case EventCheckoutCompleted:
		return e.handleCheckoutCompleted
	case EventInvoicePaid:
		return e.handleInvoicePaid
	case EventInvoiceFailed:
		return e.handleInvoiceFailed
	case EventSubscriptionCreated:
		return e.handleSubscriptionCreated
	case EventSubscriptionUpdated:
		return e.handleSubscriptionUpdated
	case EventSubscriptionDeleted:
		return e.handleSubscriptionDeleted
	default:
		return nil
	}
}

func (e *Engine) handleCheckoutCompleted(ctx context.Context, log *zap.Logger, env *Envelope) error {
	var object CheckoutSessionObject
	if err := decodeObject(env.Data.Object, &object); err != nil {
		return err
	}

	userID := UserIDFromMetadata(object.Metadata)

	switch object.Mode {
	case "payment":
		created := object.Created
		if created == 0 {
			created = e.clock.Now().Unix()
		}
		if _, err := e.ledger.Record(ctx, ledgerdomain.Entry{
			SessionID:   object.ID,
			UserID:      userID,
			Amount:      object.AmountTotal,
			Currency:    object.Currency,
			Status:      object.PaymentStatus,
			ProductName: object.Metadata["product_name"],
			CreatedAt:   time.Unix(created, 0).UTC(),
		}); err != nil {
			return err
		}

	case "subscription":
		// The subscription linkage can arrive before the subscription
		// event itself; bind ownership early when we can.
		if object.Subscription != "" && userID != nil {
			if err := e.subs.BindOwner(ctx, object.Subscription, *userID); err != nil {
				if !errors.Is(err, subdomain.ErrSubscriptionNotFound) {
					log.Warn("early owner bind failed", zap.Error(err))
				} else if _, err := e.subs.Upsert(ctx, subdomain.Subscription{
					ID:         object.Subscription,
					UserID:     userID,
					CustomerID: object.Customer,
					Status:     "incomplete",
				}); err != nil {
					log.Warn("placeholder subscription upsert failed", zap.Error(err))
				}
			}
		}
	}

	// The completed session doubles as the invoice snapshot for this
	// payment attempt; record it write-once under the session id.
	var snapshot InvoiceObject
	if err := decodeObject(env.Data.Object, &snapshot); err == nil && snapshot.ID != "" {
		if _, err := e.invoices.Record(ctx, invoicedomain.Invoice{
			ID:             snapshot.ID,
			SubscriptionID: snapshot.Subscription,
			Status:         snapshot.Status,
			AmountDue:      snapshot.AmountDue,
			Currency:       snapshot.Currency,
			Created:        snapshot.Created,
		}); err != nil {
			log.Warn("invoice snapshot write failed", zap.Error(err))
		}
	}

	return nil
}

func (e *Engine) handleInvoicePaid(ctx context.Context, _ *zap.Logger, env *Envelope) error {
	var object InvoiceObject
	if err := decodeObject(env.Data.Object, &object); err != nil {
		return err
	}

	_, err := e.invoices.Record(ctx, invoicedomain.Invoice{
		ID:             object.ID,
		SubscriptionID: object.Subscription,
		Status:         object.Status,
		AmountDue:      object.AmountDue,
		Currency:       object.Currency,
		Created:        object.Created,
	})
	return err
}

func (e *Engine) handleInvoiceFailed(_ context.Context, log *zap.Logger, env *Envelope) error {
	var object InvoiceObject
	if err := decodeObject(env.Data.Object, &object); err != nil {
		return err
	}
	// Monitoring concern only; the ledger is untouched.
	log.Warn("invoice payment failed",
		zap.String("invoice_id", object.ID),
		zap.String("subscription_id", object.Subscription),
	)
	return nil
}

func (e *Engine) handleSubscriptionCreated(ctx context.Context, log *zap.Logger, env *Envelope) error {
	var object SubscriptionObject
	if err := decodeObject(env.Data.Object, &object); err != nil {
		return err
	}

	stored, err := e.subs.Upsert(ctx, subscriptionFromObject(&object))
	if err != nil {
		return err
	}

	if stored.UserID == nil && stored.CustomerID != "" {
		if userID := e.backfillOwner(ctx, log, stored.ID, stored.CustomerID); userID != nil {
			if err := e.subs.BindOwner(ctx, stored.ID, *userID); err != nil {
				log.Warn("owner backfill bind failed", zap.Error(err))
			} else {
				stored.UserID = userID
			}
		}
	}

	if stored.UserID != nil && stored.Status == subdomain.StatusActive {
		e.enforceSingleActivePlan(ctx, log, *stored)
	}

	return nil
}

func (e *Engine) handleSubscriptionUpdated(ctx context.Context, _ *zap.Logger, env *Envelope) error {
	var object SubscriptionObject
	if err := decodeObject(env.Data.Object, &object); err != nil {
		return err
	}
	_, err := e.subs.Upsert(ctx, subscriptionFromObject(&object))
	return err
}

func (e *Engine) handleSubscriptionDeleted(ctx context.Context, log *zap.Logger, env *Envelope) error {
	var object SubscriptionObject
	if err := decodeObject(env.Data.Object, &object); err != nil {
		return err
	}

	if err := e.subs.MarkCanceled(ctx, object.ID); err != nil {
		if errors.Is(err, subdomain.ErrSubscriptionNotFound) {
			log.Warn("deletion event for unknown subscription", zap.String("subscription_id", object.ID))
			return nil
		}
		return err
	}
	return nil
}

// backfillOwner looks through the customer's recent checkout sessions for
// one whose metadata names the local user behind this subscription. Purely
// best-effort: any failure leaves ownership unknown.
func (e *Engine) backfillOwner(ctx context.Context, log *zap.Logger, subscriptionID, customerID string) *snowflake.ID {
	sessions, err := e.gateway.ListCheckoutSessions(ctx, customerID, 10)
	if err != nil {
		log.Warn("owner backfill lookup failed", zap.Error(err))
		return nil
	}
	for _, session := range sessions {
		if session.Subscription != subscriptionID {
			continue
		}
		if userID := UserIDFromMetadata(session.Metadata); userID != nil {
			return userID
		}
	}
	return nil
}

// enforceSingleActivePlan schedules every other active subscription of the
// same user for cancellation at period end. The external call per sibling is
// best-effort and happens outside any local transaction; the local flag is
// set regardless so the policy holds even when the processor is unreachable.
func (e *Engine) enforceSingleActivePlan(ctx context.Context, log *zap.Logger, current subdomain.Subscription) {
	siblings, err := e.subs.ActiveSiblings(ctx, *current.UserID, current.ID)
	if err != nil {
		log.Warn("sibling lookup failed", zap.Error(err))
		return
	}

	for _, sibling := range siblings {
		if sibling.CancelAtPeriodEnd {
			continue
		}
		if _, err := e.gateway.SetCancelAtPeriodEnd(ctx, sibling.ID, true); err != nil {
			log.Warn("external cancel-at-period-end failed",
				zap.String("subscription_id", sibling.ID),
				zap.Error(err),
			)
		}
		if err := e.subs.SetCancelFlag(ctx, sibling.ID, true); err != nil {
			log.Warn("local cancel flag update failed",
				zap.String("subscription_id", sibling.ID),
				zap.Error(err),
			)
		}
	}
}

func subscriptionFromObject(object *SubscriptionObject) subdomain.Subscription {
	return subdomain.Subscription{
		ID:                object.ID,
		UserID:            UserIDFromMetadata(object.Metadata),
		CustomerID:        object.Customer,
		PriceID:           object.PriceID(),
		Status:            object.Status,
		CurrentPeriodEnd:  object.PeriodEnd(),
		CancelAtPeriodEnd: object.CancelAtPeriodEnd,
		TrialEnd:          object.TrialEnd,
		LatestInvoice:     object.LatestInvoice,
		CreatedAt:         time.Unix(object.Created, 0).UTC(),
	}
}
