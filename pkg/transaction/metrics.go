package transaction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeBegin    = "begin"
	outcomeJoin     = "join"
	outcomeCommit   = "commit"
	outcomeRollback = "rollback"
	outcomeFailure  = "failure"
)

// Metrics counts boundary outcomes.
type Metrics struct {
	Outcomes *prometheus.CounterVec
}

// NewMetrics registers the transaction counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Outcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gallery",
				Name:      "transactions_total",
				Help:      "Transaction boundaries by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
}
