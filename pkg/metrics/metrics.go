// Package metrics exposes Prometheus instruments for the stock engine.
//
// Instruments are registered on the default registry when the package is
// loaded; cmd/main.go serves them on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stock"

var (
	// LockWaitSeconds is the time spent in Locker.Acquire, labelled by outcome (acquired/timeout).
	LockWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the per-product mutex.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3, 5},
		},
		[]string{"result"},
	)

	// UnlockedMutationsTotal counts best-effort mutations that ran without the mutex.
	UnlockedMutationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unlocked_mutations_total",
			Help:      "Mutations applied without the per-product mutex after a lock timeout.",
		},
	)

	TxConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_conflicts_total",
			Help:      "Transaction conflicts, labelled by whether the retry absorbed them.",
		},
		[]string{"result"},
	)

	AdjustmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adjustments_total",
			Help:      "Stock adjustments by mode and result.",
		},
		[]string{"mode", "result"},
	)

	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Reservation operations by action and result.",
		},
		[]string{"action", "result"},
	)

	OverReservedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "over_reserved_total",
			Help:      "Mutations that left reserved greater than on_hand.",
		},
	)

	PublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Stock change events that could not be published.",
		},
	)
)

func ObserveLockWait(start time.Time, acquired bool) {
	result := "acquired"
	if !acquired {
		result = "timeout"
	}
	LockWaitSeconds.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

// Result maps an error to a low-cardinality label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
