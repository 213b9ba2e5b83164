package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PollTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_poll_ticks_total",
			Help: "Total number of poll ticks by outcome (ok, skipped, error)",
		},
		[]string{"status"},
	)

	EventsDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_detected_total",
			Help: "Total number of newly detected payment events by type",
		},
		[]string{"event_type"},
	)

	ProviderFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_provider_fetch_duration_ms",
			Help:    "Provider API fetch duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"resource", "status"},
	)

	WebhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_webhook_deliveries_total",
			Help: "Total number of webhook delivery attempts by outcome",
		},
		[]string{"status"},
	)

	WebhookDeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_webhook_delivery_duration_ms",
			Help:    "Webhook delivery duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"status"},
	)

	LedgerSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_ledger_size",
			Help: "Number of event identities in the dedup ledger",
		},
	)

	LedgerPersistFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_ledger_persist_failures_total",
			Help: "Total number of failed ledger persist attempts",
		},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_rate_limit_requests_total",
			Help: "Total number of admin API requests by rate limit decision",
		},
		[]string{"status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_circuit_breaker_requests_total",
			Help: "Total number of requests through a circuit breaker",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_circuit_breaker_failures_total",
			Help: "Total number of failed requests through a circuit breaker",
		},
		[]string{"name"},
	)
)

func RegisterRelayMetrics() {
	prometheus.MustRegister(
		PollTicksTotal,
		EventsDetectedTotal,
		ProviderFetchDuration,
		WebhookDeliveriesTotal,
		WebhookDeliveryDuration,
		LedgerSize,
		LedgerPersistFailuresTotal,
	)
}

func RegisterAdminMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}

func ObserveProviderFetch(resource string, duration time.Duration, status string) {
	ProviderFetchDuration.WithLabelValues(resource, status).Observe(float64(duration.Milliseconds()))
}

func ObserveWebhookDelivery(duration time.Duration, status string) {
	WebhookDeliveriesTotal.WithLabelValues(status).Inc()
	WebhookDeliveryDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func SetLedgerSize(size int) {
	LedgerSize.Set(float64(size))
}
