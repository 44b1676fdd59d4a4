package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/config"
	"github.com/temcen/moviegraph/internal/database"
	"github.com/temcen/moviegraph/internal/graph"
	"github.com/temcen/moviegraph/internal/handlers"
	"github.com/temcen/moviegraph/internal/messaging"
	"github.com/temcen/moviegraph/internal/middleware"
	"github.com/temcen/moviegraph/internal/services"
	"github.com/temcen/moviegraph/internal/validation"
)

const schemaTimeout = 30 * time.Second

type publisher interface {
	services.RatingEventPublisher
	Close() error
}

type App struct {
	config    *config.Config
	logger    *logrus.Logger
	db        *database.Database
	publisher publisher
	services  *services.Services
	handlers  *handlers.Handlers
	validator *validation.SchemaValidator
	router    *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: SetupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if cfg.Kafka.Enabled {
		app.publisher = messaging.NewRatingEventPublisher(cfg, app.logger)
		app.logger.WithField("topic", cfg.Kafka.Topics.RatingEvents).Info("Rating events enabled")
	} else {
		app.publisher = messaging.NopPublisher{}
	}

	app.services = services.New(cfg, app.logger, db, app.publisher)
	services.RegisterMetrics(prometheus.DefaultRegisterer, app.logger)

	if cfg.Neo4j.EnsureSchema {
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		if err := graph.EnsureSchema(ctx, app.services.Store); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ensure graph schema: %w", err)
		}
		app.logger.Info("Graph schema ensured")
	}

	validator, err := validation.NewBuiltinValidator()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load request schemas: %w", err)
	}
	app.validator = validator

	app.handlers = handlers.New(app.logger, app.services)
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Logger() *logrus.Logger {
	return a.logger
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if err := a.publisher.Close(); err != nil {
		a.logger.WithError(err).Warn("Error closing rating event publisher")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

// SetupLogger builds the process logger from the logging config.
func SetupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	a.router = NewRouter(a.config, a.logger, a.services, a.handlers, a.validator)
}

// NewRouter mounts the HTTP API. It takes its collaborators explicitly so
// tests can serve it over an in-memory graph.
func NewRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	svcs *services.Services,
	h *handlers.Handlers,
	validator *validation.SchemaValidator,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg))
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	router.GET("/health", h.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireUser := []gin.HandlerFunc{
		middleware.Auth(svcs.Auth, logger),
		middleware.RateLimit(svcs.RateLimit, logger),
	}

	api := router.Group("/api/v1")
	{
		recommendations := api.Group("/recommendations")
		{
			recommendations.GET("/collaborative/:userId", h.Recommendation.Collaborative)
			recommendations.GET("/content/:userId", h.Recommendation.Content)
			recommendations.GET("/hybrid/:userId", h.Recommendation.Hybrid)
			recommendations.GET("/for-me", append(requireUser, h.Recommendation.ForMe)...)
			recommendations.GET("/popular", h.Recommendation.Popular)
			recommendations.GET("/similar/:movieId", h.Recommendation.Similar)
			recommendations.GET("/explain/:userId/:movieId", h.Recommendation.Explain)
		}

		ratings := api.Group("/ratings")
		{
			ratings.GET("/movie/:movieId", h.Rating.MovieRatings)

			mine := ratings.Group("", requireUser...)
			mine.POST("", middleware.ValidateBody(validator, validation.SchemaRating), h.Rating.Upsert)
			mine.DELETE("/:movieId", h.Rating.Delete)
			mine.GET("/mine", h.Rating.Mine)
			mine.GET("/check/:movieId", h.Rating.Check)
			mine.GET("/stats", h.Rating.Stats)
		}

		movies := api.Group("/movies")
		{
			movies.GET("", h.Movie.List)
			movies.GET("/genres", h.Movie.Genres)
			movies.GET("/by-genre/:genre", h.Movie.ByGenre)
			movies.GET("/new-releases", h.Movie.NewReleases)
			movies.GET("/search", h.Movie.Search)
			movies.GET("/:movieId", h.Movie.Get)
		}
	}

	return router
}
