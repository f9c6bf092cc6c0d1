package charger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChargersListed *prometheus.CounterVec
	ListRejected   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChargersListed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "topcharger_chargers_listed_total",
			Help: "Chargers listed, by supply type",
		}, []string{"supply"}),
		ListRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "topcharger_charger_list_rejected_total",
			Help: "Rejected charger listings, by reason",
		}, []string{"reason"}),
	}
}
