// Package metrics defines the Prometheus instruments for the ledger service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "splitsnap"

// Ledger holds the counters and histograms updated by the service layer.
type Ledger struct {
	ReceiptsFinalized   prometheus.Counter
	SettlementsRecorded *prometheus.CounterVec
	Rejections          *prometheus.CounterVec
	PlannedTransfers    prometheus.Histogram
	RebuildSeconds      prometheus.Histogram
}

// New registers the ledger instruments with reg.
func New(reg prometheus.Registerer) *Ledger {
	f := promauto.With(reg)
	return &Ledger{
		ReceiptsFinalized: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_finalized_total",
			Help:      "Receipts finalized into a group ledger, edits included.",
		}),
		SettlementsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_recorded_total",
			Help:      "Settlement records appended, by status.",
		}, []string{"status"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Operations rejected by validation, by operation and reason.",
		}, []string{"operation", "reason"}),
		PlannedTransfers: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "planned_transfers",
			Help:      "Number of transfers in computed settlement plans.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		RebuildSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_rebuild_seconds",
			Help:      "Time spent rebuilding a group ledger from history.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
}
