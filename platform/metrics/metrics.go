// Package metrics registers the Prometheus collectors shared across services.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	LockAcquisitions *prometheus.CounterVec
	LockReleases     *prometheus.CounterVec
	LocksExpired     prometheus.Counter
	Purchases        *prometheus.CounterVec
	LedgerEntries    *prometheus.CounterVec
	HoldsPlaced      prometheus.Counter
	HoldsLifted      *prometheus.CounterVec
	Fulfillment      *prometheus.CounterVec
	SweepPasses      *prometheus.CounterVec
	SweepRowErrors   *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			LockAcquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lead_lock_acquisitions_total",
				Help:      "Total lead lock acquisition attempts by result.",
			}, []string{"result"}),
			LockReleases: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lead_lock_releases_total",
				Help:      "Total lead lock releases by cause.",
			}, []string{"cause"}),
			LocksExpired: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lead_locks_expired_total",
				Help:      "Total lead locks reaped after TTL expiry.",
			}),
			Purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lead_purchases_total",
				Help:      "Total lead purchase attempts by result.",
			}, []string{"result"}),
			LedgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credit_ledger_entries_total",
				Help:      "Total ledger entries appended by reason.",
			}, []string{"reason"}),
			HoldsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "partner_holds_placed_total",
				Help:      "Total partner account holds placed.",
			}),
			HoldsLifted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "partner_holds_lifted_total",
				Help:      "Total partner account holds lifted by mode.",
			}, []string{"mode"}),
			Fulfillment: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fulfillment_transitions_total",
				Help:      "Total fulfillment transitions applied by event.",
			}, []string{"event"}),
			SweepPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweeper_passes_total",
				Help:      "Total sweeper passes by task.",
			}, []string{"task"}),
			SweepRowErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweeper_row_errors_total",
				Help:      "Total per-row sweeper failures by task.",
			}, []string{"task"}),
		}

		prometheus.MustRegister(
			metricsInstance.LockAcquisitions,
			metricsInstance.LockReleases,
			metricsInstance.LocksExpired,
			metricsInstance.Purchases,
			metricsInstance.LedgerEntries,
			metricsInstance.HoldsPlaced,
			metricsInstance.HoldsLifted,
			metricsInstance.Fulfillment,
			metricsInstance.SweepPasses,
			metricsInstance.SweepRowErrors,
		)
	})

	return metricsInstance
}
