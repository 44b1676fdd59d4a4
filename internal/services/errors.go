package services

import "errors"

var (
	ErrMovieNotFound  = errors.New("movie not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrRatingNotFound = errors.New("rating not found")
	ErrInvalidRating  = errors.New("invalid rating")
	ErrInvalidInput   = errors.New("invalid input")
)
