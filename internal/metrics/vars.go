package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feeguard_evaluations_total",
		Help: "Pre-trade evaluations by resulting fee tier",
	}, []string{"tier"})

	RiskScores = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "feeguard_risk_score",
		Help:    "Risk score distribution across evaluations",
		Buckets: prometheus.LinearBuckets(0, 16, 17),
	})

	Settles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feeguard_settles_total",
		Help: "Post-trade state updates applied",
	})

	ConfigUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feeguard_config_updates_total",
		Help: "Pool configuration writes by result",
	}, []string{"result"})
)

// MustRegister registers all collectors on the given registerer.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(Evaluations, RiskScores, Settles, ConfigUpdates)
}
