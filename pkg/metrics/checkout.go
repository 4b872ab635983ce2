package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records the payment orchestration counters.
type CheckoutMetrics struct {
	selections  *prometheus.CounterVec
	transitions *prometheus.CounterVec
	webhooks    *prometheus.CounterVec
	remoteCalls *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	selections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_method_selections_total",
		Help: "Payment method selections by method and outcome.",
	}, []string{"method", "outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status transitions by source and target status.",
	}, []string{"from", "to"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "processor_webhook_events_total",
		Help: "Processor webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	remoteCalls := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "remote_call_duration_seconds",
		Help:    "Duration of commerce backend and processor calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "operation"})
	reg.MustRegister(selections, transitions, webhooks, remoteCalls)
	return &CheckoutMetrics{
		selections:  selections,
		transitions: transitions,
		webhooks:    webhooks,
		remoteCalls: remoteCalls,
	}
}

// IncSelection counts a payment method selection attempt.
func (c *CheckoutMetrics) IncSelection(method, outcome string) {
	if c == nil || c.selections == nil {
		return
	}
	c.selections.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

// IncTransition counts an order status transition.
func (c *CheckoutMetrics) IncTransition(from, to string) {
	if c == nil || c.transitions == nil {
		return
	}
	c.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncWebhook counts a processed webhook event.
func (c *CheckoutMetrics) IncWebhook(eventType, outcome string) {
	if c == nil || c.webhooks == nil {
		return
	}
	c.webhooks.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveRemoteCall records the duration of one upstream call.
func (c *CheckoutMetrics) ObserveRemoteCall(service, operation string, duration time.Duration) {
	if c == nil || c.remoteCalls == nil {
		return
	}
	c.remoteCalls.WithLabelValues(normalizeLabel(service), normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
