package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for authority lookups.
type Metrics struct {
	Lookups       *prometheus.CounterVec
	LookupLatency prometheus.Histogram
}

// New registers and returns lookup metrics collectors.
func New() *Metrics {
	return &Metrics{
		Lookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vcgw_lookups_total",
			Help: "Total number of authority lookups, labeled by outcome",
		}, []string{"outcome"}),
		LookupLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vcgw_lookup_latency_seconds",
			Help:    "Latency of authority lookups in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveLookup records one completed lookup attempt.
func (m *Metrics) ObserveLookup(outcome string, d time.Duration) {
	m.Lookups.WithLabelValues(outcome).Inc()
	m.LookupLatency.Observe(d.Seconds())
}
