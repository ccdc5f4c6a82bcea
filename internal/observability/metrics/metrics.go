// Package metrics exposes the Prometheus instruments the decision gateway
// emits, following the teacher's scheduler metrics singleton pattern but
// trimmed to the instruments spec.md §6.5 names directly.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures decision-gateway health and outcome signals.
type Metrics struct {
	decisionTotal     *prometheus.CounterVec
	creditLimitBucket *prometheus.CounterVec
	bankFetchFailures prometheus.Counter
	webhookLatency    *prometheus.HistogramVec
}

var (
	once      sync.Once
	singleton *Metrics
)

// New returns the singleton metrics registry, registering instruments
// against registerer on first call.
func New(registerer prometheus.Registerer) *Metrics {
	once.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		singleton = newMetrics(registerer)
	})
	return singleton
}

// ResetForTest clears the singleton so tests can register against a fresh registry.
func ResetForTest() {
	once = sync.Once{}
	singleton = nil
}

func newMetrics(registerer prometheus.Registerer) *Metrics {
	decisionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bnpl_decision_total",
		Help: "Decisions issued by the gateway, labeled by outcome.",
	}, []string{"outcome"})

	creditLimitBucket := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bnpl_credit_limit_bucket_total",
		Help: "Decisions by assigned credit limit bucket.",
	}, []string{"bucket"})

	bankFetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bnpl_bank_fetch_failures_total",
		Help: "Failed attempts to fetch bank transaction history.",
	})

	webhookLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bnpl_webhook_latency_seconds",
		Help:    "Outbound webhook delivery latency per attempt.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"outcome"})

	registerer.MustRegister(decisionTotal, creditLimitBucket, bankFetchFailures, webhookLatency)

	return &Metrics{
		decisionTotal:     decisionTotal,
		creditLimitBucket: creditLimitBucket,
		bankFetchFailures: bankFetchFailures,
		webhookLatency:    webhookLatency,
	}
}

// IncDecision increments the decision counter for the given outcome
// ("approved", "declined", "error").
func (m *Metrics) IncDecision(outcome string) {
	if m == nil {
		return
	}
	m.decisionTotal.WithLabelValues(outcome).Inc()
}

// IncCreditLimitBucket increments the credit-limit bucket counter for a
// decision, approved or not.
func (m *Metrics) IncCreditLimitBucket(bucket string) {
	if m == nil {
		return
	}
	m.creditLimitBucket.WithLabelValues(bucket).Inc()
}

// IncBankFetchFailure increments the bank transaction fetch failure counter.
func (m *Metrics) IncBankFetchFailure() {
	if m == nil {
		return
	}
	m.bankFetchFailures.Inc()
}

// ObserveWebhookLatency records webhook delivery latency in seconds.
func (m *Metrics) ObserveWebhookLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(outcome).Observe(seconds)
}
