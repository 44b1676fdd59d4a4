package models

type Movie struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Year        int     `json:"year,omitempty"`
	Plot        string  `json:"plot,omitempty"`
	PosterURL   string  `json:"poster_url,omitempty"`
	AvgRating   float64 `json:"avg_rating"`
	RatingCount int     `json:"rating_count"`
}

// MovieDetails adds the display-only relations of a movie.
type MovieDetails struct {
	Movie
	Genres      []string `json:"genres"`
	Directors   []string `json:"directors"`
	Actors      []string `json:"actors"`
	Certificate string   `json:"certificate,omitempty"`
	Runtime     int      `json:"runtime_minutes,omitempty"`
	ImdbRating  float64  `json:"imdb_rating,omitempty"`
	Reviews     []Rating `json:"reviews"`
}

type MovieStats struct {
	MovieID     string  `json:"movie_id"`
	AvgRating   float64 `json:"avg_rating"`
	RatingCount int     `json:"rating_count"`
}

// MoviePage is one page of a catalog listing. Count is the number of movies
// on this page.
type MoviePage struct {
	Movies []Movie `json:"movies"`
	Genre  string  `json:"genre,omitempty"`
	SortBy string  `json:"sort_by"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
	Count  int     `json:"count"`
}

type GenreCount struct {
	Name       string `json:"name"`
	MovieCount int    `json:"movie_count"`
}

// TenPointToFivePoint maps an import-time 0-10 score (imdb_rating) onto the
// 1-5 rating scale used by RATED edges and avg_rating. Such scores are never
// written into avg_rating.
func TenPointToFivePoint(score float64) float64 {
	v := score / 2
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}
