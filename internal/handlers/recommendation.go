package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/middleware"
	"github.com/temcen/moviegraph/internal/services"
	"github.com/temcen/moviegraph/pkg/models"
)

// RatingCounter answers whether a user has rated anything yet.
type RatingCounter interface {
	UserRatingCount(ctx context.Context, userID string) (int, error)
}

type RecommendationHandler struct {
	recommendations services.RecommendationServiceInterface
	ratings         RatingCounter
	logger          *logrus.Logger
}

func NewRecommendationHandler(
	recommendations services.RecommendationServiceInterface,
	ratings RatingCounter,
	logger *logrus.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		recommendations: recommendations,
		ratings:         ratings,
		logger:          logger,
	}
}

func (h *RecommendationHandler) Collaborative(c *gin.Context) {
	h.forUser(c, c.Param("userId"), models.SourceCollaborative)
}

func (h *RecommendationHandler) Content(c *gin.Context) {
	h.forUser(c, c.Param("userId"), models.SourceContent)
}

func (h *RecommendationHandler) Hybrid(c *gin.Context) {
	h.forUser(c, c.Param("userId"), models.SourceHybrid)
}

// ForMe recommends for the authenticated user. Unknown types fall back to
// hybrid; a user without ratings gets an empty list and a hint.
func (h *RecommendationHandler) ForMe(c *gin.Context) {
	userID, _, ok := middleware.GetUserFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	strategy := c.DefaultQuery("type", models.SourceHybrid)
	switch strategy {
	case models.SourceCollaborative, models.SourceContent, models.SourceHybrid:
	default:
		strategy = models.SourceHybrid
	}

	count, err := h.ratings.UserRatingCount(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.logger, err, "count user ratings")
		return
	}
	if count == 0 {
		c.JSON(http.StatusOK, models.RecommendationResponse{
			UserID:          userID,
			Type:            strategy,
			Recommendations: []models.ScoredMovie{},
			Count:           0,
			Message:         "No ratings found for user. Please rate some movies first.",
		})
		return
	}

	h.forUser(c, userID, strategy)
}

func (h *RecommendationHandler) forUser(c *gin.Context, userID, strategy string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		respondError(c, http.StatusBadRequest, "INVALID_USER_ID", "User ID is required")
		return
	}
	limit := queryInt(c, "limit")
	ctx := c.Request.Context()

	var items []models.ScoredMovie
	switch strategy {
	case models.SourceCollaborative:
		items = h.recommendations.GetCollaborativeRecommendations(ctx, userID, limit)
	case models.SourceContent:
		items = h.recommendations.GetContentBasedRecommendations(ctx, userID, limit)
	default:
		items = h.recommendations.GetHybridRecommendations(ctx, userID, limit)
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"strategy": strategy,
		"count":    len(items),
	}).Debug("Recommendations generated")

	c.JSON(http.StatusOK, models.RecommendationResponse{
		UserID:          userID,
		Type:            strategy,
		Recommendations: items,
		Count:           len(items),
	})
}

func (h *RecommendationHandler) Popular(c *gin.Context) {
	genre := strings.TrimSpace(c.Query("genre"))
	movies := h.recommendations.GetPopularMovies(c.Request.Context(), genre, queryInt(c, "limit"))

	c.JSON(http.StatusOK, gin.H{
		"movies": movies,
		"genre":  genre,
		"type":   "popular",
		"count":  len(movies),
	})
}

func (h *RecommendationHandler) Similar(c *gin.Context) {
	movieID := strings.TrimSpace(c.Param("movieId"))
	movies := h.recommendations.GetSimilarMovies(c.Request.Context(), movieID, queryInt(c, "limit"))

	c.JSON(http.StatusOK, gin.H{
		"movie_id":       movieID,
		"similar_movies": movies,
		"count":          len(movies),
	})
}

func (h *RecommendationHandler) Explain(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userId"))
	movieID := strings.TrimSpace(c.Param("movieId"))

	explanation, err := h.recommendations.ExplainRecommendation(c.Request.Context(), userID, movieID)
	if err != nil {
		respondServiceError(c, h.logger, err, "explain recommendation")
		return
	}

	c.JSON(http.StatusOK, explanation)
}
