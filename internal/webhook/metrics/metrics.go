package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for webhook delivery.
type Metrics struct {
	DeliveryAttempts      *prometheus.CounterVec
	DeliveriesSucceeded   *prometheus.CounterVec
	DeliveriesFailed      *prometheus.CounterVec
	DeliveryLatency       *prometheus.HistogramVec
	FanoutSize            prometheus.Histogram
	SubscriptionsDisabled prometheus.Counter
}

// New registers the collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DeliveryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taleweave_webhook_delivery_attempts_total",
			Help: "Total webhook delivery attempts, labeled by event type",
		}, []string{"event_type"}),
		DeliveriesSucceeded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taleweave_webhook_deliveries_succeeded_total",
			Help: "Webhook deliveries that ultimately succeeded, labeled by event type",
		}, []string{"event_type"}),
		DeliveriesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taleweave_webhook_deliveries_failed_total",
			Help: "Webhook deliveries that exhausted retries or were rejected, labeled by event type",
		}, []string{"event_type"}),
		DeliveryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taleweave_webhook_delivery_latency_seconds",
			Help:    "Latency of individual delivery attempts in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"event_type"}),
		FanoutSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "taleweave_webhook_fanout_size",
			Help:    "Number of subscriptions notified per event",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		SubscriptionsDisabled: factory.NewCounter(prometheus.CounterOpts{
			Name: "taleweave_webhook_subscriptions_disabled_total",
			Help: "Subscriptions auto-disabled after crossing the failure threshold",
		}),
	}
}

func (m *Metrics) IncDeliveryAttempts(eventType string) {
	m.DeliveryAttempts.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncDeliveriesSucceeded(eventType string) {
	m.DeliveriesSucceeded.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncDeliveriesFailed(eventType string) {
	m.DeliveriesFailed.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ObserveDeliveryLatency(eventType string, seconds float64) {
	m.DeliveryLatency.WithLabelValues(eventType).Observe(seconds)
}

func (m *Metrics) ObserveFanoutSize(n int) {
	m.FanoutSize.Observe(float64(n))
}

func (m *Metrics) IncSubscriptionsDisabled() {
	m.SubscriptionsDisabled.Inc()
}
