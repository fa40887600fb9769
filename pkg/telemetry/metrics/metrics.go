// Package metrics defines the Prometheus collectors exported by the
// gateway. All metrics share the costgate_ prefix.
//
// A nil *Metrics is valid and turns every method into a no-op, which
// keeps test wiring free of collector registration.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"agentgw/costgate/pkg/pricing"
)

// Metrics contains the Prometheus collectors for the governance layer.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	rateLimitChecks *prometheus.CounterVec
	budgetChecks    *prometheus.CounterVec
	budgetCommitted *prometheus.GaugeVec

	costTotal *prometheus.CounterVec

	recorderQueueDepth prometheus.Gauge
	recorderDropped    prometheus.Counter

	providerFailures *prometheus.CounterVec
}

// New creates a Metrics instance and registers its collectors with the
// default registry.
func New() *Metrics {
	return &Metrics{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "costgate_requests_total",
				Help: "Total requests settled, by provider, model, and outcome",
			},
			[]string{"provider", "model", "outcome"},
		),

		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "costgate_request_duration_seconds",
				Help:    "End-to-end request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
			},
			[]string{"provider"},
		),

		rateLimitChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "costgate_rate_limit_checks_total",
				Help: "Total rate limit checks performed, by result",
			},
			[]string{"result"},
		),

		budgetChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "costgate_budget_checks_total",
				Help: "Total budget reservations attempted, by result",
			},
			[]string{"result"},
		),

		budgetCommitted: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "costgate_budget_committed_micro_usd",
				Help: "Committed spend per user in micro-USD",
			},
			[]string{"user"},
		),

		costTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "costgate_cost_micro_usd_total",
				Help: "Total committed cost in micro-USD, by provider and model",
			},
			[]string{"provider", "model"},
		),

		recorderQueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "costgate_recorder_queue_depth",
				Help: "Usage records waiting in the recorder buffer",
			},
		),

		recorderDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "costgate_recorder_dropped_total",
				Help: "Usage records dropped by the recorder",
			},
		),

		providerFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "costgate_provider_failures_total",
				Help: "Upstream provider call failures, by provider",
			},
			[]string{"provider"},
		),
	}
}

// RecordRequest records one settled request.
func (m *Metrics) RecordRequest(provider, model, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(provider, model, outcome).Inc()
	m.requestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRateLimitCheck records a rate limit check result.
func (m *Metrics) RecordRateLimitCheck(allowed bool) {
	if m == nil {
		return
	}
	m.rateLimitChecks.WithLabelValues(checkResult(allowed)).Inc()
}

// RecordBudgetCheck records a budget reservation result.
func (m *Metrics) RecordBudgetCheck(allowed bool) {
	if m == nil {
		return
	}
	m.budgetChecks.WithLabelValues(checkResult(allowed)).Inc()
}

// SetBudgetCommitted updates the committed spend gauge for a user.
func (m *Metrics) SetBudgetCommitted(user string, committed pricing.MicroUSD) {
	if m == nil {
		return
	}
	m.budgetCommitted.WithLabelValues(user).Set(float64(committed))
}

// AddCost adds committed cost for a provider and model.
func (m *Metrics) AddCost(provider, model string, cost pricing.MicroUSD) {
	if m == nil {
		return
	}
	m.costTotal.WithLabelValues(provider, model).Add(float64(cost))
}

// SetRecorderQueueDepth updates the recorder buffer depth gauge.
func (m *Metrics) SetRecorderQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.recorderQueueDepth.Set(float64(depth))
}

// AddRecorderDropped adds n to the dropped-records counter.
func (m *Metrics) AddRecorderDropped(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.recorderDropped.Add(float64(n))
}

// RecordProviderFailure records one upstream provider failure.
func (m *Metrics) RecordProviderFailure(provider string) {
	if m == nil {
		return
	}
	m.providerFailures.WithLabelValues(provider).Inc()
}

func checkResult(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}
