package stripeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fitretto/gymbill/internal/config"
)

var ErrMissingAPIKey = errors.New("stripe api key is not configured")

// APIError carries the processor's own message so synchronous endpoints can
// pass it through to the caller.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client is a thin form-encoded HTTP client for the Stripe REST API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(cfg config.Config) *Client {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.StripeAPIBase), "/")
	if base == "" {
		base = "https://api.stripe.com"
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.StripeSecretKey),
		baseURL: base,
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	values := url.Values{}
	values.Set("mode", params.Mode)
	values.Set("success_url", params.SuccessURL)
	values.Set("cancel_url", params.CancelURL)
	if params.CustomerID != "" {
		values.Set("customer", params.CustomerID)
	}

	quantity := params.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	if params.PriceID != "" {
		values.Set("line_items[0][price]", params.PriceID)
	} else {
		values.Set("line_items[0][price_data][currency]", strings.ToLower(params.Currency))
		values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.Amount, 10))
		values.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	}
	values.Set("line_items[0][quantity]", strconv.FormatInt(quantity, 10))

	for key, value := range params.Metadata {
		values.Set("metadata["+key+"]", value)
	}

	var session CheckoutSession
	if err := c.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values, params.IdempotencyKey, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) RetrieveCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.doRequest(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), nil, "", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListCheckoutSessions returns the customer's most recent checkout sessions.
func (c *Client) ListCheckoutSessions(ctx context.Context, customerID string, limit int) ([]CheckoutSession, error) {
	if limit <= 0 {
		limit = 10
	}
	path := fmt.Sprintf("/v1/checkout/sessions?customer=%s&limit=%d", url.QueryEscape(customerID), limit)

	var list CheckoutSessionList
	if err := c.doRequest(ctx, http.MethodGet, path, nil, "", &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *Client) CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error) {
	values := url.Values{}
	if params.Email != "" {
		values.Set("email", params.Email)
	}
	if params.Name != "" {
		values.Set("name", params.Name)
	}
	for key, value := range params.Metadata {
		values.Set("metadata["+key+"]", value)
	}

	var customer Customer
	if err := c.doRequest(ctx, http.MethodPost, "/v1/customers", values, "", &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) RetrieveCustomer(ctx context.Context, id string) (*Customer, error) {
	var customer Customer
	if err := c.doRequest(ctx, http.MethodGet, "/v1/customers/"+url.PathEscape(id), nil, "", &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) RetrieveSubscription(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	if err := c.doRequest(ctx, http.MethodGet, "/v1/subscriptions/"+url.PathEscape(id), nil, "", &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// SetCancelAtPeriodEnd toggles the non-destructive cancellation flag.
func (c *Client) SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*Subscription, error) {
	values := url.Values{}
	values.Set("cancel_at_period_end", strconv.FormatBool(cancel))

	var sub Subscription
	if err := c.doRequest(ctx, http.MethodPost, "/v1/subscriptions/"+url.PathEscape(id), values, "", &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscriptionSchedule wraps an existing subscription in a schedule so
// future phases can be appended.
func (c *Client) CreateSubscriptionSchedule(ctx context.Context, subscriptionID string) (*SubscriptionSchedule, error) {
	values := url.Values{}
	values.Set("from_subscription", subscriptionID)

	var schedule SubscriptionSchedule
	if err := c.doRequest(ctx, http.MethodPost, "/v1/subscription_schedules", values, "", &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (c *Client) UpdateSubscriptionSchedule(ctx context.Context, id string, phases []SchedulePhase) (*SubscriptionSchedule, error) {
	values := url.Values{}
	for i, phase := range phases {
		prefix := fmt.Sprintf("phases[%d]", i)
		values.Set(prefix+"[items][0][price]", phase.PriceID)
		if phase.Iterations > 0 {
			values.Set(prefix+"[iterations]", strconv.FormatInt(phase.Iterations, 10))
		}
	}

	var schedule SubscriptionSchedule
	if err := c.doRequest(ctx, http.MethodPost, "/v1/subscription_schedules/"+url.PathEscape(id), values, "", &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ReleaseSubscriptionSchedule detaches the subscription from its schedule,
// abandoning any pending phase change.
func (c *Client) ReleaseSubscriptionSchedule(ctx context.Context, id string) (*SubscriptionSchedule, error) {
	var schedule SubscriptionSchedule
	if err := c.doRequest(ctx, http.MethodPost, "/v1/subscription_schedules/"+url.PathEscape(id)+"/release", nil, "", &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
	out any,
) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	body := ""
	if values != nil {
		body = values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		message := "stripe_request_failed"
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err == nil {
			if m := strings.TrimSpace(stripeErr.Error.Message); m != "" {
				message = m
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
