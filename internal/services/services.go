package services

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/config"
	"github.com/temcen/moviegraph/internal/database"
	"github.com/temcen/moviegraph/internal/graph"
)

type Services struct {
	Store                    graph.Store
	Auth                     *AuthService
	Health                   *HealthService
	RateLimit                *RateLimitService
	MovieStats               *MovieStatsService
	RecommendationAlgorithms *RecommendationAlgorithmsService
	Explanations             *ExplanationService
	Recommendations          *RecommendationService
	Ratings                  *RatingService
	Catalog                  *CatalogService
}

// New wires the services over a breaker-guarded Neo4j store. A nil
// publisher disables rating events.
func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, publisher RatingEventPublisher) *Services {
	store := graph.NewBreakerStore(
		graph.NewNeo4jStore(db.Neo4j, cfg.Neo4j.Database, logger),
		graph.BreakerSettings{
			Name:             "neo4j",
			MaxRequests:      cfg.Neo4j.Breaker.MaxRequests,
			Interval:         cfg.Neo4j.Breaker.Interval,
			Timeout:          cfg.Neo4j.Breaker.Timeout,
			FailureThreshold: cfg.Neo4j.Breaker.FailureThreshold,
		},
		logger,
	)

	s := NewWithStore(cfg, logger, store, publisher)
	s.Health = NewHealthService(logger, db)
	if db.Redis != nil {
		s.RateLimit = NewRateLimitService(cfg, logger, db.Redis)
	}
	return s
}

// NewWithStore builds the graph-backed services on top of store. Health and
// rate limiting are left for the caller.
func NewWithStore(cfg *config.Config, logger *logrus.Logger, store graph.Store, publisher RatingEventPublisher) *Services {
	stats := NewMovieStatsService(store, logger)
	algorithms := NewRecommendationAlgorithmsService(store, logger)
	explanations := NewExplanationService(store, logger)
	weights := HybridWeights{
		Collaborative: cfg.Algorithms.Hybrid.CollaborativeWeight,
		Content:       cfg.Algorithms.Hybrid.ContentWeight,
	}

	return &Services{
		Store:                    store,
		Auth:                     NewAuthService(cfg, logger),
		RateLimit:                NewRateLimitService(cfg, logger, nil),
		MovieStats:               stats,
		RecommendationAlgorithms: algorithms,
		Explanations:             explanations,
		Recommendations:          NewRecommendationService(algorithms, explanations, weights, logger),
		Ratings:                  NewRatingService(store, stats, publisher, logger),
		Catalog:                  NewCatalogService(store, logger),
		Health:                   NewHealthServiceWithChecks(logger, nil, nil),
	}
}

