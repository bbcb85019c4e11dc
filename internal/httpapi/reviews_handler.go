package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Chetan2520/india-food-court/internal/reviews"
	"github.com/go-chi/chi/v5"
)

type ReviewService interface {
	CreateReview(ctx context.Context, userID, itemID string, rating int, comment string) (*reviews.Review, error)
	ItemReviews(ctx context.Context, itemID string) (*reviews.ItemReviews, error)
	Averages(ctx context.Context) ([]reviews.ItemAverage, error)
}

type ReviewsHandler struct {
	svc     ReviewService
	timeout time.Duration
}

func NewReviewsHandler(svc ReviewService, timeout time.Duration) *ReviewsHandler {
	return &ReviewsHandler{svc: svc, timeout: timeout}
}

type CreateReviewRequestDTO struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type CreateReviewResponseDTO struct {
	Message string          `json:"message"`
	Review  *reviews.Review `json:"review"`
}

// POST /api/reviews/{itemId}
//
// Reviews are unique per (user, item), so anonymous callers cannot post.
func (h *ReviewsHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == DefaultUserID {
		respondError(w, r, http.StatusUnauthorized, "user_required", "X-User-ID header is required to post a review.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateReviewRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	review, err := h.svc.CreateReview(ctx, userID, chi.URLParam(r, "itemId"), req.Rating, req.Comment)
	if err != nil {
		handleReviewError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, CreateReviewResponseDTO{
		Message: "Review added successfully!",
		Review:  review,
	})
}

// GET /api/reviews/{itemId}
func (h *ReviewsHandler) ItemReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.svc.ItemReviews(ctx, chi.URLParam(r, "itemId"))
	if err != nil {
		handleReviewError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

// GET /api/reviews
func (h *ReviewsHandler) Averages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.svc.Averages(ctx)
	if err != nil {
		respondServerError(w, r, err)
		return
	}
	if result == nil {
		result = []reviews.ItemAverage{}
	}
	respondJSON(w, r, http.StatusOK, result)
}

func handleReviewError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, reviews.ErrUserRequired):
		respondError(w, r, http.StatusUnauthorized, "user_required", "X-User-ID header is required to post a review.")
	case errors.Is(err, reviews.ErrItemIDRequired):
		respondError(w, r, http.StatusBadRequest, "missing_item_id", "Item ID is required.")
	case errors.Is(err, reviews.ErrInvalidRating):
		respondError(w, r, http.StatusBadRequest, "invalid_rating", "Rating must be between 1 and 5.")
	case errors.Is(err, reviews.ErrCommentRequired):
		respondError(w, r, http.StatusBadRequest, "missing_comment", "Comment is required.")
	case errors.Is(err, reviews.ErrAlreadyReviewed):
		respondError(w, r, http.StatusConflict, "already_reviewed", "You have already reviewed this item.")
	case errors.Is(err, reviews.ErrItemNotFound):
		respondError(w, r, http.StatusNotFound, "not_found", "Item not found.")
	default:
		respondServerError(w, r, err)
	}
}
