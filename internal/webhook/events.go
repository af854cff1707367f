package webhook

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrInvalidPayload = errors.New("invalid event payload")

// Event names in the processor's vocabulary.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.paid"
	EventInvoiceFailed       = "invoice.payment_failed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Envelope is the outer shape of every webhook notification. Object stays
// raw until the event type selects a concrete payload shape.
type Envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func ParseEnvelope(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, ErrInvalidPayload
	}
	if strings.TrimSpace(env.ID) == "" || strings.TrimSpace(env.Type) == "" {
		return nil, ErrInvalidPayload
	}
	return &env, nil
}

// CheckoutSessionObject is the payload of checkout.session.completed.
type CheckoutSessionObject struct {
	ID            string            `json:"id"`
	Mode          string            `json:"mode"`
	Customer      string            `json:"customer"`
	Subscription  string            `json:"subscription"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	Created       int64             `json:"created"`
	Metadata      map[string]string `json:"metadata"`
}

// InvoiceObject is the payload of invoice.* events.
type InvoiceObject struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
	Status       string `json:"status"`
	AmountDue    int64  `json:"amount_due"`
	Currency     string `json:"currency"`
	Created      int64  `json:"created"`
}

// SubscriptionObject is the payload of customer.subscription.* events.
type SubscriptionObject struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CurrentPeriodEnd   *int64            `json:"current_period_end"`
	TrialEnd           *int64            `json:"trial_end"`
	BillingCycleAnchor *int64            `json:"billing_cycle_anchor"`
	LatestInvoice      string            `json:"latest_invoice"`
	Created            int64             `json:"created"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []struct {
			CurrentPeriodEnd *int64 `json:"current_period_end"`
			Price            struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// PriceID returns the first line item's price identifier.
func (o *SubscriptionObject) PriceID() string {
	if len(o.Items.Data) == 0 {
		return ""
	}
	return o.Items.Data[0].Price.ID
}

// PeriodEnd resolves the canonical end of the current billing period. The
// object shape varies by API version and plan type, so the first non-null of
// current_period_end, the first item's current_period_end, trial_end, and
// billing_cycle_anchor wins.
func (o *SubscriptionObject) PeriodEnd() *int64 {
	if o.CurrentPeriodEnd != nil {
		return o.CurrentPeriodEnd
	}
	if len(o.Items.Data) > 0 && o.Items.Data[0].CurrentPeriodEnd != nil {
		return o.Items.Data[0].CurrentPeriodEnd
	}
	if o.TrialEnd != nil {
		return o.TrialEnd
	}
	return o.BillingCycleAnchor
}

func decodeObject(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return ErrInvalidPayload
	}
	return nil
}
