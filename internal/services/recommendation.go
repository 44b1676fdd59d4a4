package services

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/moviegraph/pkg/models"
)

// RecommendationService is the boundary used by the HTTP layer and the CLI.
// It bounds every limit and turns recommender failures into empty lists.
type RecommendationService struct {
	algorithms   *RecommendationAlgorithmsService
	explanations *ExplanationService
	weights      HybridWeights
	logger       *logrus.Logger
}

func NewRecommendationService(
	algorithms *RecommendationAlgorithmsService,
	explanations *ExplanationService,
	weights HybridWeights,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		algorithms:   algorithms,
		explanations: explanations,
		weights:      weights.orDefault(),
		logger:       logger,
	}
}

func (s *RecommendationService) GetCollaborativeRecommendations(ctx context.Context, userID string, limit int) []models.ScoredMovie {
	defer observe(models.SourceCollaborative)()
	limit = collaborativeLimits.effective(limit)

	items, err := s.algorithms.CollaborativeRecommendations(ctx, userID, limit)
	return degrade(s.logger, models.SourceCollaborative, userID, items, err)
}

func (s *RecommendationService) GetContentBasedRecommendations(ctx context.Context, userID string, limit int) []models.ScoredMovie {
	defer observe(models.SourceContent)()
	limit = contentLimits.effective(limit)

	items, err := s.algorithms.ContentBasedRecommendations(ctx, userID, limit)
	return degrade(s.logger, models.SourceContent, userID, items, err)
}

// GetHybridRecommendations asks both recommenders for twice the limit in
// parallel. Either side failing only removes its contribution.
func (s *RecommendationService) GetHybridRecommendations(ctx context.Context, userID string, limit int) []models.ScoredMovie {
	defer observe(models.SourceHybrid)()
	limit = hybridLimits.effective(limit)
	fetch := 2 * limit

	var collaborative, content []models.ScoredMovie
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.algorithms.CollaborativeRecommendations(gctx, userID, fetch)
		collaborative = degrade(s.logger, models.SourceCollaborative, userID, items, err)
		return nil
	})
	g.Go(func() error {
		items, err := s.algorithms.ContentBasedRecommendations(gctx, userID, fetch)
		content = degrade(s.logger, models.SourceContent, userID, items, err)
		return nil
	})
	_ = g.Wait()

	return CombineHybrid(collaborative, content, s.weights, limit)
}

func (s *RecommendationService) GetPopularMovies(ctx context.Context, genre string, limit int) []models.Movie {
	defer observe("popular")()
	limit = popularLimits.effective(limit)

	items, err := s.algorithms.PopularMovies(ctx, genre, limit)
	return degrade(s.logger, "popular", genre, items, err)
}

func (s *RecommendationService) GetSimilarMovies(ctx context.Context, movieID string, limit int) []models.SimilarMovie {
	defer observe("similar")()
	limit = similarLimits.effective(limit)

	items, err := s.algorithms.SimilarMovies(ctx, movieID, limit)
	return degrade(s.logger, "similar", movieID, items, err)
}

// ExplainRecommendation is not degraded: an unknown movie is reported as
// ErrMovieNotFound and store failures are returned as they are.
func (s *RecommendationService) ExplainRecommendation(ctx context.Context, userID, movieID string) (*models.Explanation, error) {
	defer observe("explain")()

	explanation, err := s.explanations.Explain(ctx, userID, movieID)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  userID,
			"movie_id": movieID,
		}).Debug("Failed to explain recommendation")
		return nil, err
	}
	return explanation, nil
}

// degrade maps a failed recommender call to an empty, non-nil list. The
// failure is logged and counted so it stays visible to operators.
func degrade[T any](logger *logrus.Logger, strategy, subject string, items []T, err error) []T {
	if err != nil {
		recommendationFailures.WithLabelValues(strategy).Inc()
		logger.WithError(err).WithFields(logrus.Fields{
			"strategy": strategy,
			"subject":  subject,
		}).Warn("Recommendation failed, returning empty result")
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

func observe(strategy string) func() {
	recommendationRequests.WithLabelValues(strategy).Inc()
	timer := prometheus.NewTimer(recommendationDuration.WithLabelValues(strategy))
	return func() { timer.ObserveDuration() }
}
