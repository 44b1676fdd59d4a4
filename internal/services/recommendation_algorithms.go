package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/graph"
	"github.com/temcen/moviegraph/pkg/models"
)

const (
	// Collaborative filtering: a co-rated movie counts as agreement when both
	// ratings clear their floors and differ by at most maxCoRatingGap.
	minTargetCoRating     = 3.0
	minPeerCoRating       = 3.5
	maxCoRatingGap        = 1.5
	minAgreements         = 2
	minPeerFavoriteRating = 4.0

	// Content-based filtering.
	minLikedRating       = 4.0
	topGenreCount        = 3
	minCandidateAvgScore = 3.5

	// Popular movies. A genre filter already narrows the pool, so its floor
	// is lower.
	popularMinRating      = 4.0
	popularGenreMinRating = 3.5
)

// RecommendationAlgorithmsService runs the individual recommenders. Its
// methods return errors; RecommendationService decides what callers see.
type RecommendationAlgorithmsService struct {
	store  graph.Store
	logger *logrus.Logger
}

func NewRecommendationAlgorithmsService(store graph.Store, logger *logrus.Logger) *RecommendationAlgorithmsService {
	return &RecommendationAlgorithmsService{
		store:  store,
		logger: logger,
	}
}

// CollaborativeRecommendations scores movies by the mean rating given by
// users whose ratings agree with the target's on at least two movies.
func (s *RecommendationAlgorithmsService) CollaborativeRecommendations(
	ctx context.Context,
	userID string,
	limit int,
) ([]models.ScoredMovie, error) {
	profile, err := loadRatingProfile(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	if len(profile.ratings) == 0 {
		return []models.ScoredMovie{}, nil
	}

	peers, err := s.findTastePeers(ctx, userID, profile)
	if err != nil {
		return nil, err
	}
	if len(peers) == 0 {
		s.logger.WithField("user_id", userID).Debug("No taste peers found")
		return []models.ScoredMovie{}, nil
	}

	peerIDs := make([]string, 0, len(peers))
	for id := range peers {
		peerIDs = append(peerIDs, id)
	}
	sort.Strings(peerIDs)

	rows, err := s.store.Query(ctx, peerFavoritesQuery, map[string]any{
		"userId":    userID,
		"peerIds":   peerIDs,
		"minRating": minPeerFavoriteRating,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load peer favorites: %w", err)
	}

	type candidate struct {
		movie models.Movie
		sum   float64
		votes int
	}
	candidates := make(map[string]*candidate)
	for _, row := range rows {
		d := row.Decode()
		peerID := d.String("peer_id")
		rating := d.Float("rating")
		movie := decodeMovie(d)
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode peer favorite: %w", err)
		}

		if _, ok := peers[peerID]; !ok || rating < minPeerFavoriteRating || profile.rated(movie.ID) {
			continue
		}

		c, ok := candidates[movie.ID]
		if !ok {
			c = &candidate{movie: movie}
			candidates[movie.ID] = c
		}
		c.sum += rating
		c.votes++
	}

	results := make([]models.ScoredMovie, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, models.ScoredMovie{
			Movie:               c.movie,
			RecommendationScore: c.sum / float64(c.votes),
			VoteCount:           c.votes,
		})
	}
	rankScored(results)

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"peers":      len(peers),
		"candidates": len(results),
	}).Debug("Collaborative filtering completed")

	return truncate(results, limit), nil
}

// findTastePeers returns the users sharing at least minAgreements agreeing
// co-ratings with the target, with their agreement counts.
func (s *RecommendationAlgorithmsService) findTastePeers(
	ctx context.Context,
	userID string,
	profile *ratingProfile,
) (map[string]int, error) {
	rows, err := s.store.Query(ctx, coRatersQuery, map[string]any{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load co-raters: %w", err)
	}

	agreed := make(map[string]map[string]struct{})
	for _, row := range rows {
		d := row.Decode()
		peerID := d.String("peer_id")
		movieID := d.String("movie_id")
		peerRating := d.Float("rating")
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode co-rater: %w", err)
		}

		if peerID == userID {
			continue
		}
		targetRating, ok := profile.ratings[movieID]
		if !ok || !ratingsAgree(targetRating, peerRating) {
			continue
		}
		if agreed[peerID] == nil {
			agreed[peerID] = make(map[string]struct{})
		}
		agreed[peerID][movieID] = struct{}{}
	}

	peers := make(map[string]int)
	for peerID, movies := range agreed {
		if len(movies) >= minAgreements {
			peers[peerID] = len(movies)
		}
	}
	return peers, nil
}

func ratingsAgree(target, peer float64) bool {
	return target >= minTargetCoRating &&
		peer >= minPeerCoRating &&
		math.Abs(target-peer) <= maxCoRatingGap
}

// ContentBasedRecommendations scores unseen, well rated movies in the user's
// three favourite genres by how much the user likes each matching genre.
func (s *RecommendationAlgorithmsService) ContentBasedRecommendations(
	ctx context.Context,
	userID string,
	limit int,
) ([]models.ScoredMovie, error) {
	profile, err := loadRatingProfile(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}

	top := topGenres(profile.genreAffinities(minLikedRating), topGenreCount)
	if len(top) == 0 {
		return []models.ScoredMovie{}, nil
	}

	weights := make(map[string]float64, len(top))
	names := make([]string, 0, len(top))
	for _, affinity := range top {
		weights[affinity.Genre] = float64(affinity.Count) * affinity.AvgRating
		names = append(names, affinity.Genre)
	}

	rows, err := s.store.Query(ctx, genreCandidatesQuery, map[string]any{
		"userId":       userID,
		"genres":       names,
		"minAvgRating": minCandidateAvgScore,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load genre candidates: %w", err)
	}

	type candidate struct {
		movie   models.Movie
		matched map[string]struct{}
	}
	candidates := make(map[string]*candidate)
	for _, row := range rows {
		d := row.Decode()
		movie := decodeMovie(d)
		matched := d.Strings("matched_genres")
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode genre candidate: %w", err)
		}

		if profile.rated(movie.ID) || movie.AvgRating < minCandidateAvgScore {
			continue
		}
		c, ok := candidates[movie.ID]
		if !ok {
			c = &candidate{movie: movie, matched: make(map[string]struct{})}
			candidates[movie.ID] = c
		}
		for _, genre := range matched {
			if _, ok := weights[genre]; ok {
				c.matched[genre] = struct{}{}
			}
		}
	}

	results := make([]models.ScoredMovie, 0, len(candidates))
	for _, c := range candidates {
		if len(c.matched) == 0 {
			continue
		}
		var score float64
		for genre := range c.matched {
			score += weights[genre]
		}
		results = append(results, models.ScoredMovie{
			Movie:               c.movie,
			RecommendationScore: score,
			GenreMatchCount:     len(c.matched),
		})
	}
	rankScored(results)

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"top_genres": names,
		"candidates": len(results),
	}).Debug("Content-based filtering completed")

	return truncate(results, limit), nil
}

// topGenres ranks by number of liked movies, then by mean rating.
func topGenres(affinities []models.GenreAffinity, n int) []models.GenreAffinity {
	ranked := append([]models.GenreAffinity(nil), affinities...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].AvgRating > ranked[j].AvgRating
	})
	return truncate(ranked, n)
}

// PopularMovies returns the best rated movies, optionally within one genre.
func (s *RecommendationAlgorithmsService) PopularMovies(ctx context.Context, genre string, limit int) ([]models.Movie, error) {
	genre = normalizeName(genre)

	stmt := popularMoviesQuery
	floor := popularMinRating
	params := map[string]any{"limit": limit}
	if genre != "" {
		stmt = popularMoviesByGenreQuery
		floor = popularGenreMinRating
		params["genre"] = genre
	}
	params["minRating"] = floor

	rows, err := s.store.Query(ctx, stmt, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load popular movies: %w", err)
	}

	decoded, err := decodeMovies(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to decode popular movies: %w", err)
	}

	movies := decoded[:0]
	for _, m := range decoded {
		if m.AvgRating >= floor {
			movies = append(movies, m)
		}
	}
	sort.SliceStable(movies, func(i, j int) bool {
		if movies[i].AvgRating != movies[j].AvgRating {
			return movies[i].AvgRating > movies[j].AvgRating
		}
		return movies[i].RatingCount > movies[j].RatingCount
	})
	return truncate(movies, limit), nil
}

// SimilarMovies ranks movies by the number of genres they share with the
// given one.
func (s *RecommendationAlgorithmsService) SimilarMovies(ctx context.Context, movieID string, limit int) ([]models.SimilarMovie, error) {
	rows, err := s.store.Query(ctx, similarMoviesQuery, map[string]any{
		"movieId":      movieID,
		"minAvgRating": minCandidateAvgScore,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load similar movies: %w", err)
	}

	results := make([]models.SimilarMovie, 0, len(rows))
	for _, row := range rows {
		d := row.Decode()
		movie := decodeMovie(d)
		shared := d.Strings("shared_genres")
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode similar movie: %w", err)
		}
		if movie.ID == movieID || movie.AvgRating < minCandidateAvgScore || len(shared) == 0 {
			continue
		}
		sort.Strings(shared)
		results = append(results, models.SimilarMovie{
			Movie:           movie,
			SimilarityScore: len(shared),
			SharedGenres:    shared,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if a.AvgRating != b.AvgRating {
			return a.AvgRating > b.AvgRating
		}
		return a.ID < b.ID
	})
	return truncate(results, limit), nil
}
