package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures metric labels shared across instruments.
type Config struct {
	ServiceName string
	Environment string
}

// Metrics exposes application-level instruments backed by a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	webhookEvents   *prometheus.CounterVec
	checkoutCreated prometheus.Counter
	ledgerEntries   prometheus.Counter
	rateLimitDenied prometheus.Counter
}

// New configures the domain metrics instruments.
func New(cfg Config) (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	constLabels := prometheus.Labels{}
	if name := strings.TrimSpace(cfg.ServiceName); name != "" {
		constLabels["service"] = name
	}

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "gymbill_http_requests_total",
		Help:        "HTTP requests by method, route and status.",
		ConstLabels: constLabels,
	}, []string{"method", "route", "status"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "gymbill_http_request_duration_seconds",
		Help:        "HTTP request latency by route.",
		ConstLabels: constLabels,
		Buckets:     prometheus.DefBuckets,
	}, []string{"method", "route"})

	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "gymbill_webhook_events_total",
		Help:        "Webhook events by type and outcome.",
		ConstLabels: constLabels,
	}, []string{"event_type", "outcome"})

	checkoutCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "gymbill_checkout_sessions_total",
		Help:        "Checkout sessions created.",
		ConstLabels: constLabels,
	})

	ledgerEntries := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "gymbill_ledger_entries_total",
		Help:        "Ledger entries written.",
		ConstLabels: constLabels,
	})

	rateLimitDenied := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "gymbill_rate_limit_denied_total",
		Help:        "Requests rejected by the rate limiter.",
		ConstLabels: constLabels,
	})

	for _, c := range []prometheus.Collector{
		httpRequests, httpDuration, webhookEvents, checkoutCreated, ledgerEntries, rateLimitDenied,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Metrics{
		registry:        registry,
		httpRequests:    httpRequests,
		httpDuration:    httpDuration,
		webhookEvents:   webhookEvents,
		checkoutCreated: checkoutCreated,
		ledgerEntries:   ledgerEntries,
		rateLimitDenied: rateLimitDenied,
	}, nil
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one completed request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if strings.TrimSpace(route) == "" {
		route = "unknown"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordWebhookEvent records one webhook delivery outcome.
func (m *Metrics) RecordWebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	if strings.TrimSpace(eventType) == "" {
		eventType = "unknown"
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// RecordCheckoutSession increments the checkout counter.
func (m *Metrics) RecordCheckoutSession() {
	if m == nil {
		return
	}
	m.checkoutCreated.Inc()
}

// RecordLedgerEntry increments the ledger write counter.
func (m *Metrics) RecordLedgerEntry() {
	if m == nil {
		return
	}
	m.ledgerEntries.Inc()
}

// RecordRateLimitDenied increments the rate limiter rejection counter.
func (m *Metrics) RecordRateLimitDenied() {
	if m == nil {
		return
	}
	m.rateLimitDenied.Inc()
}
