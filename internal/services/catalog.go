package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/graph"
	"github.com/temcen/moviegraph/pkg/models"
)

const (
	defaultGenreMinRating  = 3.5
	genreMinRatingCount    = 10
	newReleaseMinRating    = 3.0
	movieDetailReviewCount = 10
)

// Browse orderings accepted by ListMovies.
const (
	SortByRating = "rating"
	SortByYear   = "year"
	SortByTitle  = "title"
)

var browseQueries = map[string]string{
	SortByRating: browseMoviesByRatingQuery,
	SortByYear:   browseMoviesByYearQuery,
	SortByTitle:  browseMoviesByTitleQuery,
}

// CatalogService serves movie browsing: details, genres and listings.
type CatalogService struct {
	store  graph.Store
	logger *logrus.Logger
	now    func() time.Time
}

func NewCatalogService(store graph.Store, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// GetMovie returns a movie with its genres, people and most recent reviews.
func (s *CatalogService) GetMovie(ctx context.Context, movieID string) (*models.MovieDetails, error) {
	movieID = strings.TrimSpace(movieID)

	rows, err := s.store.Query(ctx, movieDetailsQuery, map[string]any{"movieId": movieID})
	if err != nil {
		return nil, fmt.Errorf("failed to load movie: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrMovieNotFound
	}

	d := rows[0].Decode()
	details := &models.MovieDetails{
		Movie:       decodeMovie(d),
		Genres:      d.Strings("genres"),
		Directors:   d.Strings("directors"),
		Actors:      d.Strings("actors"),
		Certificate: d.OptString("certificate"),
		Runtime:     d.OptInt("runtime_minutes"),
		ImdbRating:  d.OptFloat("imdb_rating"),
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode movie: %w", err)
	}

	reviews, err := s.store.Query(ctx, movieRatingsPageQuery, map[string]any{
		"movieId": movieID,
		"skip":    0,
		"limit":   movieDetailReviewCount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}

	details.Reviews = make([]models.Rating, 0, len(reviews))
	for _, row := range reviews {
		rd := row.Decode()
		review := models.Rating{
			UserID:    rd.String("user_id"),
			Username:  rd.OptString("username"),
			MovieID:   movieID,
			Rating:    rd.Float("rating"),
			Review:    rd.OptString("review"),
			Timestamp: rd.OptTime("timestamp"),
		}
		if err := rd.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode review: %w", err)
		}
		details.Reviews = append(details.Reviews, review)
	}

	return details, nil
}

// ListMovies pages through the whole catalog, optionally restricted to one
// genre. An unknown sortBy falls back to rating order.
func (s *CatalogService) ListMovies(ctx context.Context, genre, sortBy string, page, limit int) (*models.MoviePage, error) {
	genre = normalizeName(genre)
	sortBy = strings.ToLower(strings.TrimSpace(sortBy))
	query, ok := browseQueries[sortBy]
	if !ok {
		sortBy, query = SortByRating, browseMoviesByRatingQuery
	}
	page = effectivePage(page)
	limit = catalogLimits.effective(limit)

	rows, err := s.store.Query(ctx, query, map[string]any{
		"genre": genre,
		"skip":  (page - 1) * limit,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}

	movies, err := decodeMovies(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to decode movie listing: %w", err)
	}
	movies = truncate(movies, limit)

	return &models.MoviePage{
		Movies: movies,
		Genre:  genre,
		SortBy: sortBy,
		Page:   page,
		Limit:  limit,
		Count:  len(movies),
	}, nil
}

func (s *CatalogService) ListGenres(ctx context.Context) ([]models.GenreCount, error) {
	rows, err := s.store.Query(ctx, genresQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load genres: %w", err)
	}

	genres := make([]models.GenreCount, 0, len(rows))
	for _, row := range rows {
		d := row.Decode()
		genre := models.GenreCount{
			Name:       d.String("name"),
			MovieCount: d.Int("movie_count"),
		}
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode genre: %w", err)
		}
		genres = append(genres, genre)
	}
	return genres, nil
}

// MoviesByGenre lists well rated movies of one genre. Only movies with at
// least ten ratings qualify. A minRating outside 0-5 falls back to 3.5.
func (s *CatalogService) MoviesByGenre(ctx context.Context, genre string, minRating float64, limit int) ([]models.Movie, error) {
	genre = normalizeName(genre)
	if genre == "" {
		return nil, fmt.Errorf("%w: genre is required", ErrInvalidInput)
	}
	if minRating < 0 || minRating > 5 {
		minRating = defaultGenreMinRating
	}
	limit = catalogLimits.effective(limit)

	rows, err := s.store.Query(ctx, moviesByGenreQuery, map[string]any{
		"genre":          genre,
		"minRating":      minRating,
		"minRatingCount": genreMinRatingCount,
		"limit":          limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load movies by genre: %w", err)
	}

	movies, err := decodeMovies(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to decode movies by genre: %w", err)
	}
	return truncate(movies, limit), nil
}

// NewReleases lists movies released within the last yearsBack years.
func (s *CatalogService) NewReleases(ctx context.Context, yearsBack, limit int) ([]models.Movie, error) {
	yearsBack = yearsBackRange.effective(yearsBack)
	limit = catalogLimits.effective(limit)
	minYear := s.now().Year() - yearsBack

	rows, err := s.store.Query(ctx, newReleasesQuery, map[string]any{
		"minYear":   minYear,
		"minRating": newReleaseMinRating,
		"limit":     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load new releases: %w", err)
	}

	movies, err := decodeMovies(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to decode new releases: %w", err)
	}
	return truncate(movies, limit), nil
}

// Search matches titles case-insensitively. An empty query matches nothing.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]models.Movie, error) {
	query = normalizeName(query)
	if query == "" {
		return []models.Movie{}, nil
	}
	limit = catalogLimits.effective(limit)

	rows, err := s.store.Query(ctx, searchMoviesQuery, map[string]any{
		"query": query,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search movies: %w", err)
	}

	movies, err := decodeMovies(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"query":   query,
		"results": len(movies),
	}).Debug("Movie search completed")

	return truncate(movies, limit), nil
}
