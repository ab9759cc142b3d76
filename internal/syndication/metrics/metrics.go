// Package metrics exposes prometheus collectors for the consent lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the syndication consent collectors.
type Metrics struct {
	ConsentChanges  *prometheus.CounterVec
	ConsentsExpired prometheus.Counter
	ActiveSweeps    prometheus.Gauge
}

// New registers the collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConsentChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taleweave_consent_changes_total",
			Help: "Consent transitions by change type.",
		}, []string{"change_type"}),
		ConsentsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "taleweave_consents_expired_total",
			Help: "Consents flipped to expired by the sweep worker.",
		}),
		ActiveSweeps: factory.NewGauge(prometheus.GaugeOpts{
			Name: "taleweave_consent_expiry_sweep_running",
			Help: "1 while an expiry sweep is in progress.",
		}),
	}
}

// IncChange counts one consent transition.
func (m *Metrics) IncChange(changeType string) {
	m.ConsentChanges.WithLabelValues(changeType).Inc()
}

// IncExpired counts one consent expired by the sweep.
func (m *Metrics) IncExpired() {
	m.ConsentsExpired.Inc()
}
