package stripeapi

// CheckoutSession mirrors the subset of the Stripe checkout session object
// that the application reads.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Mode          string            `json:"mode"`
	Customer      string            `json:"customer"`
	Subscription  string            `json:"subscription"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	Status        string            `json:"status"`
	Created       int64             `json:"created"`
	Metadata      map[string]string `json:"metadata"`
}

type CheckoutSessionList struct {
	Data    []CheckoutSession `json:"data"`
	HasMore bool              `json:"has_more"`
}

type Customer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Name     string            `json:"name"`
	Deleted  bool              `json:"deleted"`
	Metadata map[string]string `json:"metadata"`
}

type Subscription struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  *int64 `json:"current_period_end"`
	TrialEnd          *int64 `json:"trial_end"`
	LatestInvoice     string `json:"latest_invoice"`
	Created           int64  `json:"created"`
}

type SubscriptionSchedule struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
	Status       string `json:"status"`
}

// CheckoutSessionParams carries the inputs for creating a checkout session.
// Metadata keys round-trip local identifiers through the processor.
type CheckoutSessionParams struct {
	Mode       string
	SuccessURL string
	CancelURL  string
	CustomerID string

	// Subscription mode: an existing price.
	PriceID string

	// Payment mode: an ad hoc price built from amount and product name.
	Amount      int64
	Currency    string
	ProductName string

	Quantity       int64
	Metadata       map[string]string
	IdempotencyKey string
}

type CustomerParams struct {
	Email    string
	Name     string
	Metadata map[string]string
}

// SchedulePhase describes one phase of a subscription schedule.
type SchedulePhase struct {
	PriceID    string
	Iterations int64
}
