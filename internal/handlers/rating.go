package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/middleware"
	"github.com/temcen/moviegraph/internal/services"
	"github.com/temcen/moviegraph/pkg/models"
)

type RatingHandler struct {
	ratings services.RatingServiceInterface
	logger  *logrus.Logger
}

func NewRatingHandler(ratings services.RatingServiceInterface, logger *logrus.Logger) *RatingHandler {
	return &RatingHandler{
		ratings: ratings,
		logger:  logger,
	}
}

func (h *RatingHandler) currentUser(c *gin.Context) (string, bool) {
	userID, _, ok := middleware.GetUserFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return "", false
	}
	return userID, true
}

// Upsert creates or replaces the caller's rating of a movie.
func (h *RatingHandler) Upsert(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req models.RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.ratings.Upsert(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, h.logger, err, "save rating")
		return
	}

	status := http.StatusOK
	if result.Action == models.RatingCreated {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h *RatingHandler) Delete(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	movieID := strings.TrimSpace(c.Param("movieId"))
	stats, err := h.ratings.Delete(c.Request.Context(), userID, movieID)
	if err != nil {
		respondServiceError(c, h.logger, err, "delete rating")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Rating deleted",
		"movie_id":    movieID,
		"movie_stats": stats,
	})
}

func (h *RatingHandler) Mine(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	page, err := h.ratings.UserRatings(c.Request.Context(), userID, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondServiceError(c, h.logger, err, "list ratings")
		return
	}

	c.JSON(http.StatusOK, page)
}

// Check reports whether the caller has rated a movie.
func (h *RatingHandler) Check(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	movieID := strings.TrimSpace(c.Param("movieId"))
	rating, found, err := h.ratings.UserRating(c.Request.Context(), userID, movieID)
	if err != nil {
		respondServiceError(c, h.logger, err, "check rating")
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"has_rated": false, "movie_id": movieID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"has_rated": true,
		"movie_id":  movieID,
		"rating":    rating,
	})
}

func (h *RatingHandler) Stats(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	stats, err := h.ratings.UserStats(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.logger, err, "compute rating stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *RatingHandler) MovieRatings(c *gin.Context) {
	movieID := strings.TrimSpace(c.Param("movieId"))
	page, err := h.ratings.MovieRatings(c.Request.Context(), movieID, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondServiceError(c, h.logger, err, "list movie ratings")
		return
	}

	c.JSON(http.StatusOK, page)
}
