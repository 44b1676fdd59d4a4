package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/services"
)

type MovieHandler struct {
	catalog services.CatalogServiceInterface
	logger  *logrus.Logger
}

func NewMovieHandler(catalog services.CatalogServiceInterface, logger *logrus.Logger) *MovieHandler {
	return &MovieHandler{
		catalog: catalog,
		logger:  logger,
	}
}

func (h *MovieHandler) List(c *gin.Context) {
	page, err := h.catalog.ListMovies(
		c.Request.Context(),
		c.Query("genre"),
		c.Query("sort_by"),
		queryInt(c, "page"),
		queryInt(c, "limit"),
	)
	if err != nil {
		respondServiceError(c, h.logger, err, "list movies")
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *MovieHandler) Genres(c *gin.Context) {
	genres, err := h.catalog.ListGenres(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err, "list genres")
		return
	}

	c.JSON(http.StatusOK, gin.H{"genres": genres, "count": len(genres)})
}

func (h *MovieHandler) Get(c *gin.Context) {
	movie, err := h.catalog.GetMovie(c.Request.Context(), c.Param("movieId"))
	if err != nil {
		respondServiceError(c, h.logger, err, "get movie")
		return
	}

	c.JSON(http.StatusOK, movie)
}

func (h *MovieHandler) ByGenre(c *gin.Context) {
	genre := strings.TrimSpace(c.Param("genre"))

	// A missing or malformed floor is passed as -1 so the service uses its default.
	minRating := -1.0
	if raw := c.Query("min_rating"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			minRating = v
		}
	}

	movies, err := h.catalog.MoviesByGenre(c.Request.Context(), genre, minRating, queryInt(c, "limit"))
	if err != nil {
		respondServiceError(c, h.logger, err, "list movies by genre")
		return
	}

	c.JSON(http.StatusOK, gin.H{"genre": genre, "movies": movies, "count": len(movies)})
}

func (h *MovieHandler) NewReleases(c *gin.Context) {
	movies, err := h.catalog.NewReleases(c.Request.Context(), queryInt(c, "years_back"), queryInt(c, "limit"))
	if err != nil {
		respondServiceError(c, h.logger, err, "list new releases")
		return
	}

	c.JSON(http.StatusOK, gin.H{"movies": movies, "count": len(movies)})
}

func (h *MovieHandler) Search(c *gin.Context) {
	query := c.Query("q")
	movies, err := h.catalog.Search(c.Request.Context(), query, queryInt(c, "limit"))
	if err != nil {
		respondServiceError(c, h.logger, err, "search movies")
		return
	}

	c.JSON(http.StatusOK, gin.H{"query": query, "movies": movies, "count": len(movies)})
}
