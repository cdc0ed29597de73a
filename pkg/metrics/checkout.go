package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order submission and notification outcomes.
type CheckoutMetrics struct {
	submitted     *prometheus.CounterVec
	failed        *prometheus.CounterVec
	duration      prometheus.Histogram
	notifications *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	submitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Orders accepted by the checkout flow.",
	}, []string{"payment_method"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Order submissions rejected or aborted.",
	}, []string{"reason"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_submit_duration_seconds",
		Help:    "Duration of the order submission transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_notifications_total",
		Help: "Order notification delivery attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(submitted, failed, duration, notifications)
	return &CheckoutMetrics{
		submitted:     submitted,
		failed:        failed,
		duration:      duration,
		notifications: notifications,
	}
}

// IncSubmitted increments the accepted-order counter for the payment method.
func (c *CheckoutMetrics) IncSubmitted(paymentMethod string) {
	if c == nil || c.submitted == nil {
		return
	}
	c.submitted.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncFailed increments the failed-order counter for the given reason.
func (c *CheckoutMetrics) IncFailed(reason string) {
	if c == nil || c.failed == nil {
		return
	}
	c.failed.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveSubmitDuration records how long the submission transaction took.
func (c *CheckoutMetrics) ObserveSubmitDuration(duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.Observe(duration.Seconds())
}

// IncNotification increments the notification counter for the outcome ("sent", "failed", "skipped").
func (c *CheckoutMetrics) IncNotification(outcome string) {
	if c == nil || c.notifications == nil {
		return
	}
	c.notifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
