package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/moviegraph/internal/middleware"
	"github.com/temcen/moviegraph/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// asUser stands in for the auth middleware.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserTier, "free")
		c.Next()
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type MockRecommendationService struct {
	mock.Mock
}

func (m *MockRecommendationService) GetCollaborativeRecommendations(ctx context.Context, userID string, limit int) []models.ScoredMovie {
	return m.Called(ctx, userID, limit).Get(0).([]models.ScoredMovie)
}

func (m *MockRecommendationService) GetContentBasedRecommendations(ctx context.Context, userID string, limit int) []models.ScoredMovie {
	return m.Called(ctx, userID, limit).Get(0).([]models.ScoredMovie)
}

func (m *MockRecommendationService) GetHybridRecommendations(ctx context.Context, userID string, limit int) []models.ScoredMovie {
	return m.Called(ctx, userID, limit).Get(0).([]models.ScoredMovie)
}

func (m *MockRecommendationService) GetPopularMovies(ctx context.Context, genre string, limit int) []models.Movie {
	return m.Called(ctx, genre, limit).Get(0).([]models.Movie)
}

func (m *MockRecommendationService) GetSimilarMovies(ctx context.Context, movieID string, limit int) []models.SimilarMovie {
	return m.Called(ctx, movieID, limit).Get(0).([]models.SimilarMovie)
}

func (m *MockRecommendationService) ExplainRecommendation(ctx context.Context, userID, movieID string) (*models.Explanation, error) {
	args := m.Called(ctx, userID, movieID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Explanation), args.Error(1)
}

type MockRatingService struct {
	mock.Mock
}

func (m *MockRatingService) Upsert(ctx context.Context, userID string, req models.RatingRequest) (*models.RatingResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RatingResult), args.Error(1)
}

func (m *MockRatingService) Delete(ctx context.Context, userID, movieID string) (*models.MovieStats, error) {
	args := m.Called(ctx, userID, movieID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MovieStats), args.Error(1)
}

func (m *MockRatingService) UserRatings(ctx context.Context, userID string, page, limit int) (*models.RatingPage, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RatingPage), args.Error(1)
}

func (m *MockRatingService) MovieRatings(ctx context.Context, movieID string, page, limit int) (*models.MovieRatingsPage, error) {
	args := m.Called(ctx, movieID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MovieRatingsPage), args.Error(1)
}

func (m *MockRatingService) UserRating(ctx context.Context, userID, movieID string) (*models.Rating, bool, error) {
	args := m.Called(ctx, userID, movieID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Rating), args.Bool(1), args.Error(2)
}

func (m *MockRatingService) UserStats(ctx context.Context, userID string) (*models.UserRatingStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRatingStats), args.Error(1)
}

func (m *MockRatingService) UserRatingCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) GetMovie(ctx context.Context, movieID string) (*models.MovieDetails, error) {
	args := m.Called(ctx, movieID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MovieDetails), args.Error(1)
}

func (m *MockCatalogService) ListMovies(ctx context.Context, genre, sortBy string, page, limit int) (*models.MoviePage, error) {
	args := m.Called(ctx, genre, sortBy, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MoviePage), args.Error(1)
}

func (m *MockCatalogService) ListGenres(ctx context.Context) ([]models.GenreCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.GenreCount), args.Error(1)
}

func (m *MockCatalogService) MoviesByGenre(ctx context.Context, genre string, minRating float64, limit int) ([]models.Movie, error) {
	args := m.Called(ctx, genre, minRating, limit)
	return args.Get(0).([]models.Movie), args.Error(1)
}

func (m *MockCatalogService) NewReleases(ctx context.Context, yearsBack, limit int) ([]models.Movie, error) {
	args := m.Called(ctx, yearsBack, limit)
	return args.Get(0).([]models.Movie), args.Error(1)
}

func (m *MockCatalogService) Search(ctx context.Context, query string, limit int) ([]models.Movie, error) {
	args := m.Called(ctx, query, limit)
	return args.Get(0).([]models.Movie), args.Error(1)
}
