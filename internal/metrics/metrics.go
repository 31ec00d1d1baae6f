package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the registration flow. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Outcomes        *prometheus.CounterVec
	GeocodeLatency  *prometheus.HistogramVec
	LinkCacheLookup *prometheus.CounterVec
}

// New registers the collectors with reg. Passing prometheus.DefaultRegisterer
// exposes them on /metrics.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_outcomes_total",
			Help: "Registration submissions by terminal outcome",
		}, []string{"outcome"}),

		GeocodeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registration_geocode_duration_seconds",
			Help:    "Duration of reverse geocoding calls by result",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"result"}),

		LinkCacheLookup: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_community_link_cache_total",
			Help: "Community link cache lookups by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveGeocode(result string, d time.Duration) {
	if m != nil {
		m.GeocodeLatency.WithLabelValues(result).Observe(d.Seconds())
	}
}

func (m *Metrics) IncLinkCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.LinkCacheLookup.WithLabelValues("hit").Inc()
	} else {
		m.LinkCacheLookup.WithLabelValues("miss").Inc()
	}
}
