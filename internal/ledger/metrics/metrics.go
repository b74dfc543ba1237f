package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the issuance ledger.
type Metrics struct {
	Records          prometheus.Gauge
	Mutations        *prometheus.CounterVec
	SnapshotFailures prometheus.Counter
	RehydrateDropped prometheus.Counter
}

// New registers and returns ledger metrics collectors.
func New() *Metrics {
	return &Metrics{
		Records: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vcgw_ledger_records",
			Help: "Current number of records in the issuance ledger",
		}),
		Mutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vcgw_ledger_mutations_total",
			Help: "Total ledger mutations, labeled by operation",
		}, []string{"op"}),
		SnapshotFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vcgw_ledger_snapshot_failures_total",
			Help: "Total failed attempts to persist the ledger snapshot",
		}),
		RehydrateDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vcgw_ledger_rehydrate_dropped_total",
			Help: "Snapshot entries dropped at startup because they could not be normalized",
		}),
	}
}
