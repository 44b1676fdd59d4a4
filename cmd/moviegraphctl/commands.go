package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/temcen/moviegraph/internal/app"
	"github.com/temcen/moviegraph/internal/config"
	"github.com/temcen/moviegraph/internal/database"
	"github.com/temcen/moviegraph/internal/graph"
	"github.com/temcen/moviegraph/internal/services"
	"github.com/temcen/moviegraph/pkg/models"
)

var errMissingArgs = errors.New("missing arguments")

// env is what every graph-backed command runs against.
type env struct {
	cfg      *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
}

// openEnv and loadConfig are swapped out by tests.
var (
	openEnv    = openGraphEnv
	loadConfig = config.Load
)

func openGraphEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := app.SetupLogger(cfg)
	logger.SetOutput(os.Stderr)

	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		services: services.New(cfg, logger, db, nil),
	}, nil
}

func (e *env) Close() {
	if e.db == nil {
		return
	}
	if err := e.db.Close(); err != nil {
		e.logger.WithError(err).Warn("Error closing database connections")
	}
}

// withEnv opens the graph for the duration of fn.
func withEnv(fn func(ctx context.Context, cmd *cli.Command, e *env) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(ctx, cmd, e)
	}
}

// stdout is the root command's writer, os.Stdout unless a caller set one.
func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Create the graph constraints and indexes",
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			if err := graph.EnsureSchema(ctx, e.services.Store); err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "applied %d schema statements\n", len(graph.SchemaStatements))
			return nil
		}),
	}
}

func recomputeCommand() *cli.Command {
	return &cli.Command{
		Name:      "recompute",
		Usage:     "Rebuild avg_rating and rating_count from RATED edges",
		ArgsUsage: "[movieId...]",
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			ids := cmd.Args().Slice()
			if len(ids) == 0 {
				n, err := e.services.MovieStats.RecomputeAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout(cmd), "recomputed %d movies\n", n)
				return nil
			}

			stats := make([]*models.MovieStats, 0, len(ids))
			for _, id := range ids {
				s, err := e.services.MovieStats.Recompute(ctx, id)
				if err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				stats = append(stats, s)
			}
			return printJSON(stdout(cmd), stats)
		}),
	}
}

func recommendCommand() *cli.Command {
	return &cli.Command{
		Name:      "recommend",
		Usage:     "Print recommendations for a user",
		ArgsUsage: "<userId>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Value:   models.SourceHybrid,
				Usage:   "collaborative, content or hybrid",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "number of results (0 uses the default)",
			},
		},
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			userID := cmd.Args().First()
			if userID == "" {
				return fmt.Errorf("%w: user id", errMissingArgs)
			}

			recs := e.services.Recommendations
			limit := int(cmd.Int("limit"))
			var items []models.ScoredMovie
			switch strategy := cmd.String("type"); strategy {
			case models.SourceCollaborative:
				items = recs.GetCollaborativeRecommendations(ctx, userID, limit)
			case models.SourceContent:
				items = recs.GetContentBasedRecommendations(ctx, userID, limit)
			case models.SourceHybrid:
				items = recs.GetHybridRecommendations(ctx, userID, limit)
			default:
				return fmt.Errorf("unknown recommendation type %q", strategy)
			}
			return printJSON(stdout(cmd), items)
		}),
	}
}

func explainCommand() *cli.Command {
	return &cli.Command{
		Name:      "explain",
		Usage:     "Explain why a movie suits a user",
		ArgsUsage: "<userId> <movieId>",
		Action: withEnv(func(ctx context.Context, cmd *cli.Command, e *env) error {
			if cmd.Args().Len() < 2 {
				return fmt.Errorf("%w: user id and movie id", errMissingArgs)
			}
			explanation, err := e.services.Recommendations.ExplainRecommendation(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
			if err != nil {
				return err
			}
			return printJSON(stdout(cmd), explanation)
		}),
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "Issue an API token for a user",
		ArgsUsage: "<userId>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tier",
				Value: "free",
				Usage: "free or premium",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "token lifetime (0 uses auth.token_ttl)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			if ttl := cmd.Duration("ttl"); ttl > 0 {
				cfg.Auth.TokenTTL = ttl
			}

			logger := app.SetupLogger(cfg)
			token, expiresAt, err := services.NewAuthService(cfg, logger).GenerateToken(cmd.Args().First(), cmd.String("tier"))
			if err != nil {
				return err
			}
			return printJSON(stdout(cmd), models.AuthResponse{
				Token:     token,
				ExpiresAt: expiresAt.UTC().Truncate(time.Second),
				UserTier:  cmd.String("tier"),
			})
		},
	}
}
