package services

import (
	"context"

	"github.com/temcen/moviegraph/pkg/models"
)

// RecommendationServiceInterface is what the recommendation handlers depend on.
type RecommendationServiceInterface interface {
	GetCollaborativeRecommendations(ctx context.Context, userID string, limit int) []models.ScoredMovie
	GetContentBasedRecommendations(ctx context.Context, userID string, limit int) []models.ScoredMovie
	GetHybridRecommendations(ctx context.Context, userID string, limit int) []models.ScoredMovie
	GetPopularMovies(ctx context.Context, genre string, limit int) []models.Movie
	GetSimilarMovies(ctx context.Context, movieID string, limit int) []models.SimilarMovie
	ExplainRecommendation(ctx context.Context, userID, movieID string) (*models.Explanation, error)
}

type RatingServiceInterface interface {
	Upsert(ctx context.Context, userID string, req models.RatingRequest) (*models.RatingResult, error)
	Delete(ctx context.Context, userID, movieID string) (*models.MovieStats, error)
	UserRatings(ctx context.Context, userID string, page, limit int) (*models.RatingPage, error)
	MovieRatings(ctx context.Context, movieID string, page, limit int) (*models.MovieRatingsPage, error)
	UserRating(ctx context.Context, userID, movieID string) (*models.Rating, bool, error)
	UserStats(ctx context.Context, userID string) (*models.UserRatingStats, error)
	UserRatingCount(ctx context.Context, userID string) (int, error)
}

type CatalogServiceInterface interface {
	GetMovie(ctx context.Context, movieID string) (*models.MovieDetails, error)
	ListMovies(ctx context.Context, genre, sortBy string, page, limit int) (*models.MoviePage, error)
	ListGenres(ctx context.Context) ([]models.GenreCount, error)
	MoviesByGenre(ctx context.Context, genre string, minRating float64, limit int) ([]models.Movie, error)
	NewReleases(ctx context.Context, yearsBack, limit int) ([]models.Movie, error)
	Search(ctx context.Context, query string, limit int) ([]models.Movie, error)
}

var (
	_ RecommendationServiceInterface = (*RecommendationService)(nil)
	_ RatingServiceInterface         = (*RatingService)(nil)
	_ CatalogServiceInterface        = (*CatalogService)(nil)
)
