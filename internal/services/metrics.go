package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/graph"
)

var (
	recommendationRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moviegraph_recommendation_requests_total",
		Help: "Recommendation requests by strategy",
	}, []string{"strategy"})

	recommendationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moviegraph_recommendation_failures_total",
		Help: "Recommendation requests that degraded to an empty result",
	}, []string{"strategy"})

	recommendationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moviegraph_recommendation_duration_seconds",
		Help:    "Time spent producing recommendations",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	ratingMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moviegraph_rating_mutations_total",
		Help: "Rating writes by action",
	}, []string{"action"})

	statsRecomputeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moviegraph_movie_stats_recompute_failures_total",
		Help: "Movie aggregate recomputations that failed after a rating change",
	})

	ratingEventFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moviegraph_rating_event_publish_failures_total",
		Help: "Rating events that could not be published",
	})
)

// RegisterMetrics registers the service and graph store collectors.
// Collectors that are already registered are skipped.
func RegisterMetrics(reg prometheus.Registerer, logger *logrus.Logger) {
	collectors := []prometheus.Collector{
		recommendationRequests,
		recommendationFailures,
		recommendationDuration,
		ratingMutations,
		statsRecomputeFailures,
		ratingEventFailures,
		healthCheckStatus,
	}
	collectors = append(collectors, graph.Collectors()...)

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				logger.WithError(err).Warn("Failed to register metric")
			}
		}
	}
}
