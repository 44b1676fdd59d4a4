package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/temcen/moviegraph/internal/graph"
	"github.com/temcen/moviegraph/pkg/models"
)

func decodeMovie(d *graph.Decoder) models.Movie {
	return models.Movie{
		ID:          d.String("id"),
		Title:       d.String("title"),
		Year:        d.OptInt("year"),
		Plot:        d.OptString("plot"),
		PosterURL:   d.OptString("poster_url"),
		AvgRating:   d.Float("avg_rating"),
		RatingCount: d.Int("rating_count"),
	}
}

func decodeMovies(rows []graph.Record) ([]models.Movie, error) {
	movies := make([]models.Movie, 0, len(rows))
	for _, row := range rows {
		d := row.Decode()
		movie := decodeMovie(d)
		if err := d.Err(); err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	return movies, nil
}

// normalizeName trims and NFC-normalizes user supplied names so that genre
// filters match the names stored by the importer.
func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ratingProfile is a user's rating history keyed by movie id.
type ratingProfile struct {
	ratings map[string]float64
	genres  map[string][]string
}

func loadRatingProfile(ctx context.Context, store graph.Store, userID string) (*ratingProfile, error) {
	rows, err := store.Query(ctx, userRatingProfileQuery, map[string]any{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load rating profile: %w", err)
	}

	profile := &ratingProfile{
		ratings: make(map[string]float64, len(rows)),
		genres:  make(map[string][]string, len(rows)),
	}
	for _, row := range rows {
		d := row.Decode()
		movieID := d.String("movie_id")
		rating := d.Float("rating")
		genres := d.Strings("genres")
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode rating profile: %w", err)
		}
		profile.ratings[movieID] = rating
		profile.genres[movieID] = genres
	}
	return profile, nil
}

func (p *ratingProfile) rated(movieID string) bool {
	_, ok := p.ratings[movieID]
	return ok
}

// genreAffinities groups the ratings at or above minRating by genre.
func (p *ratingProfile) genreAffinities(minRating float64) []models.GenreAffinity {
	type tally struct {
		count int
		sum   float64
	}
	tallies := make(map[string]*tally)
	for movieID, rating := range p.ratings {
		if rating < minRating {
			continue
		}
		for _, genre := range p.genres[movieID] {
			t, ok := tallies[genre]
			if !ok {
				t = &tally{}
				tallies[genre] = t
			}
			t.count++
			t.sum += rating
		}
	}

	affinities := make([]models.GenreAffinity, 0, len(tallies))
	for genre, t := range tallies {
		affinities = append(affinities, models.GenreAffinity{
			Genre:     genre,
			Count:     t.count,
			AvgRating: t.sum / float64(t.count),
		})
	}
	sort.Slice(affinities, func(i, j int) bool {
		return affinities[i].Genre < affinities[j].Genre
	})
	return affinities
}

// ratedGenres lists every genre of every rated movie.
func (p *ratingProfile) ratedGenres() []string {
	seen := make(map[string]struct{})
	for _, genres := range p.genres {
		for _, g := range genres {
			seen[g] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// rankScored orders by score, then the movie's own average rating, then
// title and id so equal scores come back in a stable order.
func rankScored(items []models.ScoredMovie) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.RecommendationScore != b.RecommendationScore {
			return a.RecommendationScore > b.RecommendationScore
		}
		if a.AvgRating != b.AvgRating {
			return a.AvgRating > b.AvgRating
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
