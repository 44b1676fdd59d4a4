package models

const (
	SourceCollaborative = "collaborative"
	SourceContent       = "content"
	SourceHybrid        = "hybrid"
)

// ScoredMovie is a recommendation result. VoteCount is set by the
// collaborative recommender, GenreMatchCount by the content recommender and
// Sources by the hybrid combiner.
type ScoredMovie struct {
	Movie
	RecommendationScore float64  `json:"recommendation_score"`
	VoteCount           int      `json:"vote_count,omitempty"`
	GenreMatchCount     int      `json:"genre_match_count,omitempty"`
	Sources             []string `json:"recommendation_sources,omitempty"`
}

type SimilarMovie struct {
	Movie
	SimilarityScore int      `json:"similarity_score"`
	SharedGenres    []string `json:"shared_genres"`
}

type GenreAffinity struct {
	Genre     string  `json:"genre"`
	Count     int     `json:"count"`
	AvgRating float64 `json:"avg_rating"`
}

type SimilarUser struct {
	UserID   string  `json:"user_id"`
	Username string  `json:"username"`
	Rating   float64 `json:"rating"`
}

type Explanation struct {
	UserID         string          `json:"user_id"`
	MovieID        string          `json:"movie_id"`
	MovieTitle     string          `json:"movie_title"`
	MovieRating    float64         `json:"movie_rating"`
	MovieGenres    []string        `json:"movie_genres"`
	FavoriteGenres []GenreAffinity `json:"user_favorite_genres"`
	GenreMatches   []string        `json:"genre_matches"`
	SimilarUsers   []SimilarUser   `json:"similar_users_who_liked"`
	Text           string          `json:"explanation"`
}

type RecommendationResponse struct {
	UserID          string        `json:"user_id,omitempty"`
	Type            string        `json:"type"`
	Recommendations []ScoredMovie `json:"recommendations"`
	Count           int           `json:"count"`
	Message         string        `json:"message,omitempty"`
}
