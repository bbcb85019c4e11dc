package reviews

import "errors"

var (
	ErrUserRequired    = errors.New("user id is required")
	ErrItemIDRequired  = errors.New("item id is required")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrCommentRequired = errors.New("comment is required")
	ErrAlreadyReviewed = errors.New("item already reviewed by user")
	ErrItemNotFound    = errors.New("item not found")
)
