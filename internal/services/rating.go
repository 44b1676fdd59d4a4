package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/temcen/moviegraph/internal/graph"
	"github.com/temcen/moviegraph/internal/messaging"
	"github.com/temcen/moviegraph/pkg/models"
)

// RatingEventPublisher receives a notification for every committed rating
// change.
type RatingEventPublisher interface {
	Publish(ctx context.Context, event messaging.RatingEvent) error
}

type RatingService struct {
	store     graph.Store
	stats     *MovieStatsService
	publisher RatingEventPublisher
	validate  *validator.Validate
	logger    *logrus.Logger
}

func NewRatingService(
	store graph.Store,
	stats *MovieStatsService,
	publisher RatingEventPublisher,
	logger *logrus.Logger,
) *RatingService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &RatingService{
		store:     store,
		stats:     stats,
		publisher: publisher,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Upsert creates or replaces the user's rating of a movie. There is at most
// one RATED edge per user and movie: the write MERGEs on the edge between the
// two bound nodes inside one write transaction. Movie aggregates are
// recomputed afterwards; a failed recompute is logged and does not fail the
// call.
func (s *RatingService) Upsert(ctx context.Context, userID string, req models.RatingRequest) (*models.RatingResult, error) {
	userID = strings.TrimSpace(userID)
	req.MovieID = strings.TrimSpace(req.MovieID)
	req.Review = norm.NFC.String(strings.TrimSpace(req.Review))

	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if math.IsNaN(req.Rating) || math.IsInf(req.Rating, 0) {
		return nil, fmt.Errorf("%w: rating must be a number between 1 and 5", ErrInvalidRating)
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	exists, err := s.movieExists(ctx, req.MovieID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrMovieNotFound
	}

	rows, err := s.store.WriteQuery(ctx, upsertRatingQuery, map[string]any{
		"userId":  userID,
		"movieId": req.MovieID,
		"rating":  req.Rating,
		"review":  req.Review,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrUserNotFound
	}

	d := rows[0].Decode()
	existed := d.Bool("existed")
	rating := models.Rating{
		UserID:     userID,
		MovieID:    req.MovieID,
		MovieTitle: d.OptString("movie_title"),
		Rating:     d.Float("rating"),
		Review:     d.OptString("review"),
		Timestamp:  d.OptTime("timestamp"),
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode saved rating: %w", err)
	}

	action, eventType := models.RatingCreated, messaging.EventRatingCreated
	if existed {
		action, eventType = models.RatingUpdated, messaging.EventRatingUpdated
	}
	ratingMutations.WithLabelValues(action).Inc()

	result := &models.RatingResult{
		Rating: rating,
		Action: action,
		Stats:  s.recomputeStats(ctx, req.MovieID),
	}

	s.publish(ctx, messaging.RatingEvent{
		Type:       eventType,
		UserID:     userID,
		MovieID:    req.MovieID,
		Rating:     rating.Rating,
		MovieStats: result.Stats,
	})

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"movie_id": req.MovieID,
		"rating":   rating.Rating,
		"action":   action,
	}).Info("Rating saved")

	return result, nil
}

// Delete removes the user's rating of a movie and recomputes its aggregates.
func (s *RatingService) Delete(ctx context.Context, userID, movieID string) (*models.MovieStats, error) {
	rows, err := s.store.WriteQuery(ctx, deleteRatingQuery, map[string]any{
		"userId":  userID,
		"movieId": movieID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete rating: %w", err)
	}

	deleted := 0
	if len(rows) > 0 {
		d := rows[0].Decode()
		deleted = d.Int("deleted")
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode delete result: %w", err)
		}
	}
	if deleted == 0 {
		return nil, ErrRatingNotFound
	}
	ratingMutations.WithLabelValues("deleted").Inc()

	stats := s.recomputeStats(ctx, movieID)
	s.publish(ctx, messaging.RatingEvent{
		Type:       messaging.EventRatingDeleted,
		UserID:     userID,
		MovieID:    movieID,
		MovieStats: stats,
	})

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"movie_id": movieID,
	}).Info("Rating deleted")

	return stats, nil
}

// statsRecomputeTimeout bounds the aggregate refresh that follows a committed
// rating write. It runs detached from the request so a caller that goes away
// after the commit cannot leave the movie's stats stale.
const statsRecomputeTimeout = 5 * time.Second

func (s *RatingService) recomputeStats(ctx context.Context, movieID string) *models.MovieStats {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsRecomputeTimeout)
	defer cancel()

	stats, err := s.stats.Recompute(ctx, movieID)
	if err != nil {
		statsRecomputeFailures.Inc()
		s.logger.WithError(err).WithField("movie_id", movieID).Error("Failed to recompute movie stats")
		return nil
	}
	return stats
}

func (s *RatingService) publish(ctx context.Context, event messaging.RatingEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		ratingEventFailures.Inc()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"movie_id":   event.MovieID,
			"event_type": event.Type,
		}).Warn("Failed to publish rating event")
	}
}

func (s *RatingService) movieExists(ctx context.Context, movieID string) (bool, error) {
	rows, err := s.store.Query(ctx, movieWithGenresQuery, map[string]any{"movieId": movieID})
	if err != nil {
		return false, fmt.Errorf("failed to look up movie: %w", err)
	}
	return len(rows) > 0, nil
}

// UserRatings pages through a user's ratings, newest first.
func (s *RatingService) UserRatings(ctx context.Context, userID string, page, limit int) (*models.RatingPage, error) {
	page = effectivePage(page)
	limit = userRatingsLimits.effective(limit)

	total, err := s.UserRatingCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Query(ctx, userRatingsPageQuery, map[string]any{
		"userId": userID,
		"skip":   (page - 1) * limit,
		"limit":  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load user ratings: %w", err)
	}

	ratings := make([]models.Rating, 0, len(rows))
	for _, row := range rows {
		d := row.Decode()
		rating := models.Rating{
			UserID:     userID,
			MovieID:    d.String("movie_id"),
			MovieTitle: d.OptString("movie_title"),
			Rating:     d.Float("rating"),
			Review:     d.OptString("review"),
			Timestamp:  d.OptTime("timestamp"),
		}
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode user rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	return &models.RatingPage{
		Ratings: ratings,
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasMore: page*limit < total,
	}, nil
}

func (s *RatingService) UserRatingCount(ctx context.Context, userID string) (int, error) {
	rows, err := s.store.Query(ctx, userRatingCountQuery, map[string]any{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count user ratings: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	d := rows[0].Decode()
	total := d.Int("total")
	if err := d.Err(); err != nil {
		return 0, fmt.Errorf("failed to decode rating count: %w", err)
	}
	return total, nil
}

// MovieRatings pages through the ratings of one movie, newest first.
func (s *RatingService) MovieRatings(ctx context.Context, movieID string, page, limit int) (*models.MovieRatingsPage, error) {
	page = effectivePage(page)
	limit = movieRatingsLimits.effective(limit)

	movieRows, err := s.store.Query(ctx, movieWithGenresQuery, map[string]any{"movieId": movieID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up movie: %w", err)
	}
	if len(movieRows) == 0 {
		return nil, ErrMovieNotFound
	}
	md := movieRows[0].Decode()
	movie := decodeMovie(md)
	if err := md.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode movie: %w", err)
	}

	rows, err := s.store.Query(ctx, movieRatingsPageQuery, map[string]any{
		"movieId": movieID,
		"skip":    (page - 1) * limit,
		"limit":   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load movie ratings: %w", err)
	}

	ratings := make([]models.Rating, 0, len(rows))
	for _, row := range rows {
		d := row.Decode()
		rating := models.Rating{
			UserID:    d.String("user_id"),
			Username:  d.OptString("username"),
			MovieID:   movieID,
			Rating:    d.Float("rating"),
			Review:    d.OptString("review"),
			Timestamp: d.OptTime("timestamp"),
		}
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode movie rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	return &models.MovieRatingsPage{
		MovieID:     movie.ID,
		MovieTitle:  movie.Title,
		AvgRating:   movie.AvgRating,
		RatingCount: movie.RatingCount,
		Ratings:     ratings,
		Page:        page,
		Limit:       limit,
	}, nil
}

// UserRating returns the user's rating of a movie and whether it exists.
func (s *RatingService) UserRating(ctx context.Context, userID, movieID string) (*models.Rating, bool, error) {
	rows, err := s.store.Query(ctx, userMovieRatingQuery, map[string]any{
		"userId":  userID,
		"movieId": movieID,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to load rating: %w", err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	d := rows[0].Decode()
	rating := &models.Rating{
		UserID:     userID,
		MovieID:    movieID,
		MovieTitle: d.OptString("movie_title"),
		Rating:     d.Float("rating"),
		Review:     d.OptString("review"),
		Timestamp:  d.OptTime("timestamp"),
	}
	if err := d.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to decode rating: %w", err)
	}
	return rating, true, nil
}

// UserStats summarizes every rating the user has given.
func (s *RatingService) UserStats(ctx context.Context, userID string) (*models.UserRatingStats, error) {
	profile, err := loadRatingProfile(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}

	stats := &models.UserRatingStats{
		UserID:       userID,
		TotalRatings: len(profile.ratings),
		RatedGenres:  profile.ratedGenres(),
	}
	if len(profile.ratings) == 0 {
		return stats, nil
	}

	values := make([]float64, 0, len(profile.ratings))
	for _, r := range profile.ratings {
		values = append(values, r)
	}
	stats.AverageRating = stat.Mean(values, nil)
	stats.MinRating = floats.Min(values)
	stats.MaxRating = floats.Max(values)
	return stats, nil
}

// validationError reports an out of range rating as ErrInvalidRating and
// any other invalid field as ErrInvalidInput.
func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	kind := ErrInvalidInput
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Field() {
		case "Rating":
			kind = ErrInvalidRating
			parts = append(parts, "rating must be between 1 and 5")
		case "Review":
			parts = append(parts, "review must be at most 1000 characters")
		case "MovieID":
			parts = append(parts, "movie_id is required")
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return fmt.Errorf("%w: %s", kind, strings.Join(parts, "; "))
}
