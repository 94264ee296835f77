package orchestrator

import "github.com/prometheus/client_golang/prometheus"

const outcomeOK = "ok"

var (
	generateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelvault",
			Subsystem: "generate",
			Name:      "requests_total",
			Help:      "Total generation requests by role and outcome",
		},
		[]string{"role", "outcome"},
	)

	chunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelvault",
			Subsystem: "generate",
			Name:      "chunks_total",
			Help:      "Total generation chunks delivered to callers",
		},
	)
)

func init() {
	prometheus.MustRegister(generateTotal, chunksTotal)
}
