package matching

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers reservation and confirmation outcomes.
type Metrics struct {
	Reservations    *prometheus.CounterVec
	Confirmations   *prometheus.CounterVec
	StoreConflicts  *prometheus.CounterVec
	ReserveDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Reservations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "topcharger_reservations_total",
			Help: "Reservation attempts, by outcome",
		}, []string{"outcome"}),
		Confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "topcharger_confirmations_total",
			Help: "Charge confirmations, by outcome",
		}, []string{"outcome"}),
		StoreConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "topcharger_match_store_conflicts_total",
			Help: "Optimistic commit conflicts seen by the matching engine, by operation",
		}, []string{"operation"}),
		ReserveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "topcharger_reserve_duration_seconds",
			Help:    "Duration of Reserve including its retry",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) observeReserve(start time.Time, outcome string) {
	m.Reservations.WithLabelValues(outcome).Inc()
	m.ReserveDuration.Observe(time.Since(start).Seconds())
}
