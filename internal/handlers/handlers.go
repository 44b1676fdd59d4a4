package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/graph"
	"github.com/temcen/moviegraph/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
	Rating         *RatingHandler
	Movie          *MovieHandler
}

func New(logger *logrus.Logger, svcs *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, svcs.Health),
		Recommendation: NewRecommendationHandler(svcs.Recommendations, svcs.Ratings, logger),
		Rating:         NewRatingHandler(svcs.Ratings, logger),
		Movie:          NewMovieHandler(svcs.Catalog, logger),
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps service and store errors onto HTTP statuses.
func respondServiceError(c *gin.Context, logger *logrus.Logger, err error, action string) {
	switch {
	case errors.Is(err, services.ErrMovieNotFound):
		respondError(c, http.StatusNotFound, "MOVIE_NOT_FOUND", "Movie not found")
	case errors.Is(err, services.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, services.ErrRatingNotFound):
		respondError(c, http.StatusNotFound, "RATING_NOT_FOUND", "Rating not found")
	case errors.Is(err, services.ErrInvalidRating):
		respondError(c, http.StatusBadRequest, "INVALID_RATING", err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, graph.ErrUnavailable):
		logger.WithError(err).WithField("action", action).Error("Graph store unavailable")
		respondError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The movie database is temporarily unavailable")
	case errors.Is(err, graph.ErrCanceled):
		logger.WithError(err).WithField("action", action).Warn("Request canceled before the graph answered")
		respondError(c, http.StatusGatewayTimeout, "REQUEST_TIMEOUT", "The request timed out")
	default:
		logger.WithError(err).WithField("action", action).Error("Request failed")
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action)
	}
}

// queryInt returns 0 for a missing or malformed value so the service applies
// its default.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
