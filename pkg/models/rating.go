package models

import "time"

type Rating struct {
	UserID     string    `json:"user_id"`
	MovieID    string    `json:"movie_id"`
	MovieTitle string    `json:"movie_title,omitempty"`
	Username   string    `json:"username,omitempty"`
	Rating     float64   `json:"rating"`
	Review     string    `json:"review,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type RatingRequest struct {
	MovieID string  `json:"movie_id" validate:"required,max=128"`
	Rating  float64 `json:"rating" validate:"required,min=1,max=5"`
	Review  string  `json:"review,omitempty" validate:"max=1000"`
}

const (
	RatingCreated = "created"
	RatingUpdated = "updated"
)

type RatingResult struct {
	Rating Rating      `json:"rating"`
	Action string      `json:"action"`
	Stats  *MovieStats `json:"movie_stats,omitempty"`
}

type RatingPage struct {
	Ratings []Rating `json:"ratings"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
	Total   int      `json:"total"`
	HasMore bool     `json:"has_more"`
}

type MovieRatingsPage struct {
	MovieID     string   `json:"movie_id"`
	MovieTitle  string   `json:"movie_title"`
	AvgRating   float64  `json:"avg_rating"`
	RatingCount int      `json:"rating_count"`
	Ratings     []Rating `json:"ratings"`
	Page        int      `json:"page"`
	Limit       int      `json:"limit"`
}

type UserRatingStats struct {
	UserID        string   `json:"user_id"`
	TotalRatings  int      `json:"total_ratings"`
	AverageRating float64  `json:"average_rating"`
	MinRating     float64  `json:"min_rating"`
	MaxRating     float64  `json:"max_rating"`
	RatedGenres   []string `json:"rated_genres"`
}
