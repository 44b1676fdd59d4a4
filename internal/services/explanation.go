package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/graph"
	"github.com/temcen/moviegraph/pkg/models"
)

const (
	explainFavoriteGenres = 5
	explainSimilarUsers   = 5
	explainMinShared      = 3
	explainMinCoRating    = 3.0
)

// ExplanationService builds the justification shown next to a recommended
// movie. It reads the same graph shapes as the recommenders but feeds no
// score back into them.
type ExplanationService struct {
	store  graph.Store
	logger *logrus.Logger
}

func NewExplanationService(store graph.Store, logger *logrus.Logger) *ExplanationService {
	return &ExplanationService{
		store:  store,
		logger: logger,
	}
}

func (s *ExplanationService) Explain(ctx context.Context, userID, movieID string) (*models.Explanation, error) {
	movie, genres, err := s.loadMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}

	profile, err := loadRatingProfile(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}

	favorites := profile.genreAffinities(minLikedRating)
	sort.SliceStable(favorites, func(i, j int) bool {
		if favorites[i].AvgRating != favorites[j].AvgRating {
			return favorites[i].AvgRating > favorites[j].AvgRating
		}
		return favorites[i].Count > favorites[j].Count
	})
	favorites = truncate(favorites, explainFavoriteGenres)

	favoriteSet := make(map[string]struct{}, len(favorites))
	for _, f := range favorites {
		favoriteSet[f.Genre] = struct{}{}
	}
	matches := make([]string, 0)
	for _, g := range genres {
		if _, ok := favoriteSet[g]; ok {
			matches = append(matches, g)
		}
	}

	similarUsers, err := s.similarUsersWhoLiked(ctx, userID, movieID, profile)
	if err != nil {
		return nil, err
	}

	return &models.Explanation{
		UserID:         userID,
		MovieID:        movie.ID,
		MovieTitle:     movie.Title,
		MovieRating:    movie.AvgRating,
		MovieGenres:    genres,
		FavoriteGenres: favorites,
		GenreMatches:   matches,
		SimilarUsers:   similarUsers,
		Text:           explanationText(matches, similarUsers),
	}, nil
}

func (s *ExplanationService) loadMovie(ctx context.Context, movieID string) (models.Movie, []string, error) {
	rows, err := s.store.Query(ctx, movieWithGenresQuery, map[string]any{"movieId": movieID})
	if err != nil {
		return models.Movie{}, nil, fmt.Errorf("failed to load movie: %w", err)
	}
	if len(rows) == 0 {
		return models.Movie{}, nil, ErrMovieNotFound
	}

	d := rows[0].Decode()
	movie := decodeMovie(d)
	genres := d.Strings("genres")
	if err := d.Err(); err != nil {
		return models.Movie{}, nil, fmt.Errorf("failed to decode movie: %w", err)
	}
	sort.Strings(genres)
	return movie, genres, nil
}

// similarUsersWhoLiked lists users sharing at least explainMinShared movies
// both rated 3.0 or better with the target, who rated movieID 4.0 or better.
func (s *ExplanationService) similarUsersWhoLiked(
	ctx context.Context,
	userID, movieID string,
	profile *ratingProfile,
) ([]models.SimilarUser, error) {
	if len(profile.ratings) == 0 {
		return []models.SimilarUser{}, nil
	}

	rows, err := s.store.Query(ctx, coRatersQuery, map[string]any{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load co-raters: %w", err)
	}

	shared := make(map[string]map[string]struct{})
	for _, row := range rows {
		d := row.Decode()
		peerID := d.String("peer_id")
		sharedMovie := d.String("movie_id")
		peerRating := d.Float("rating")
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode co-rater: %w", err)
		}
		target, ok := profile.ratings[sharedMovie]
		if !ok || target < explainMinCoRating || peerRating < explainMinCoRating {
			continue
		}
		if shared[peerID] == nil {
			shared[peerID] = make(map[string]struct{})
		}
		shared[peerID][sharedMovie] = struct{}{}
	}

	rows, err = s.store.Query(ctx, movieRatersQuery, map[string]any{
		"movieId":   movieID,
		"minRating": minLikedRating,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load movie raters: %w", err)
	}

	type liked struct {
		user   models.SimilarUser
		shared int
	}
	var candidates []liked
	for _, row := range rows {
		d := row.Decode()
		user := models.SimilarUser{
			UserID:   d.String("user_id"),
			Username: d.OptString("username"),
			Rating:   d.Float("rating"),
		}
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode movie rater: %w", err)
		}
		n := len(shared[user.UserID])
		if user.UserID == userID || user.Rating < minLikedRating || n < explainMinShared {
			continue
		}
		candidates = append(candidates, liked{user: user, shared: n})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.user.Rating != b.user.Rating {
			return a.user.Rating > b.user.Rating
		}
		if a.shared != b.shared {
			return a.shared > b.shared
		}
		return a.user.UserID < b.user.UserID
	})
	candidates = truncate(candidates, explainSimilarUsers)

	users := make([]models.SimilarUser, 0, len(candidates))
	for _, c := range candidates {
		users = append(users, c.user)
	}
	return users, nil
}

func explanationText(genreMatches []string, similarUsers []models.SimilarUser) string {
	switch {
	case len(genreMatches) > 0 && len(similarUsers) > 0:
		return "This movie was recommended because it matches your favorite genres and users with similar taste rated it highly."
	case len(genreMatches) > 0:
		return fmt.Sprintf("This movie was recommended because it matches your favorite genres: %s.", strings.Join(genreMatches, ", "))
	case len(similarUsers) > 0:
		return "This movie was recommended because users with similar taste rated it highly."
	default:
		return "This movie is well rated by the community."
	}
}
