package identity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks registrations.
type Metrics struct {
	UsersRegistered *prometheus.CounterVec
	AccessDenied    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersRegistered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "topcharger_users_registered_total",
			Help: "Users registered, by role",
		}, []string{"role"}),
		AccessDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "topcharger_identity_access_denied_total",
			Help: "Authorization checks where the caller did not control the identity",
		}),
	}
}
