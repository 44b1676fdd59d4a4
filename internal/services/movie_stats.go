package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/graph"
	"github.com/temcen/moviegraph/pkg/models"
)

// MovieStatsService keeps Movie.avg_rating and Movie.rating_count in line
// with the RATED edges pointing at the movie.
type MovieStatsService struct {
	store  graph.Store
	logger *logrus.Logger
}

func NewMovieStatsService(store graph.Store, logger *logrus.Logger) *MovieStatsService {
	return &MovieStatsService{
		store:  store,
		logger: logger,
	}
}

// Recompute aggregates and writes both fields in a single write transaction.
// A movie without ratings gets avg_rating 0.0 and rating_count 0.
func (s *MovieStatsService) Recompute(ctx context.Context, movieID string) (*models.MovieStats, error) {
	rows, err := s.store.WriteQuery(ctx, recomputeMovieStatsQuery, map[string]any{"movieId": movieID})
	if err != nil {
		return nil, fmt.Errorf("failed to recompute movie stats: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrMovieNotFound
	}

	d := rows[0].Decode()
	stats := &models.MovieStats{
		MovieID:     d.String("movie_id"),
		AvgRating:   d.Float("avg_rating"),
		RatingCount: d.Int("rating_count"),
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode movie stats: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"movie_id":     stats.MovieID,
		"avg_rating":   stats.AvgRating,
		"rating_count": stats.RatingCount,
	}).Debug("Movie stats recomputed")

	return stats, nil
}

// RecomputeAll rebuilds the aggregates of every movie and returns how many
// were written. It repairs drift left by failed best-effort recomputes.
func (s *MovieStatsService) RecomputeAll(ctx context.Context) (int, error) {
	rows, err := s.store.WriteQuery(ctx, recomputeAllMovieStatsQuery, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to recompute all movie stats: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	d := rows[0].Decode()
	movies := d.Int("movies")
	if err := d.Err(); err != nil {
		return 0, fmt.Errorf("failed to decode recompute result: %w", err)
	}

	s.logger.WithField("movies", movies).Info("Movie stats rebuilt")
	return movies, nil
}
