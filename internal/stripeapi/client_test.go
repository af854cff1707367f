package stripeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/fitretto/gymbill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.Config{
		StripeSecretKey: "sk_test_123",
		StripeAPIBase:   srv.URL,
	})
}

func TestCreateCheckoutSessionPaymentMode(t *testing.T) {
	var form url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.Equal(t, "order:42", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		form = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.test/cs_test_1","mode":"payment"}`))
	})

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		Mode:        "payment",
		SuccessURL:  "https://app.test/success",
		CancelURL:   "https://app.test/cancel",
		Amount:      2500,
		Currency:    "USD",
		ProductName: "Day Pass",
		Metadata: map[string]string{
			"user_id":      "7",
			"product_name": "Day Pass",
		},
		IdempotencyKey: "order:42",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.test/cs_test_1", session.URL)

	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "usd", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "2500", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "Day Pass", form.Get("line_items[0][price_data][product_data][name]"))
	assert.Equal(t, "1", form.Get("line_items[0][quantity]"))
	assert.Equal(t, "7", form.Get("metadata[user_id]"))
}

func TestCreateCheckoutSessionSubscriptionMode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "price_basic", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "cus_9", r.PostForm.Get("customer"))
		_, _ = w.Write([]byte(`{"id":"cs_test_2","mode":"subscription"}`))
	})

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionParams{
		Mode:       "subscription",
		SuccessURL: "https://app.test/success",
		CancelURL:  "https://app.test/cancel",
		CustomerID: "cus_9",
		PriceID:    "price_basic",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_2", session.ID)
}

func TestStripeErrorPassthrough(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"message":"Your card was declined."}}`))
	})

	_, err := client.RetrieveCheckoutSession(context.Background(), "cs_missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Equal(t, "Your card was declined.", apiErr.Message)
}

func TestListCheckoutSessions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cus_9", r.URL.Query().Get("customer"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[{"id":"cs_a","subscription":"sub_1"},{"id":"cs_b"}],"has_more":false}`))
	})

	sessions, err := client.ListCheckoutSessions(context.Background(), "cus_9", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "sub_1", sessions[0].Subscription)
}

func TestSetCancelAtPeriodEnd(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/subscriptions/sub_1", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "true", r.PostForm.Get("cancel_at_period_end"))
		_, _ = w.Write([]byte(`{"id":"sub_1","cancel_at_period_end":true,"status":"active"}`))
	})

	sub, err := client.SetCancelAtPeriodEnd(context.Background(), "sub_1", true)
	require.NoError(t, err)
	assert.True(t, sub.CancelAtPeriodEnd)
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient(config.Config{})
	_, err := client.RetrieveCustomer(context.Background(), "cus_1")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
