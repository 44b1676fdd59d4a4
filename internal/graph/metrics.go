package graph

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moviegraph_graph_query_duration_seconds",
		Help:    "Duration of graph store transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "moviegraph_graph_breaker_state",
		Help: "Graph store circuit breaker state (0 = closed, 1 = half-open, 2 = open)",
	}, []string{"breaker"})

	breakerRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moviegraph_graph_breaker_rejections_total",
		Help: "Calls rejected while the graph store circuit breaker was open",
	}, []string{"breaker"})
)

// Collectors returns the graph store metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{queryDuration, breakerState, breakerRejections}
}
