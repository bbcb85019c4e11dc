package reviews

import (
	"context"
	"strings"
	"time"

	"github.com/Chetan2520/india-food-court/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log, now: time.Now}
}

func (s *Service) CreateReview(ctx context.Context, userID, itemID string, rating int, comment string) (*Review, error) {
	itemID = strings.TrimSpace(itemID)
	comment = strings.TrimSpace(comment)

	switch {
	case strings.TrimSpace(userID) == "":
		return nil, ErrUserRequired
	case itemID == "":
		return nil, ErrItemIDRequired
	case rating < MinRating || rating > MaxRating:
		return nil, ErrInvalidRating
	case comment == "":
		return nil, ErrCommentRequired
	}

	exists, err := s.repo.ItemExists(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrItemNotFound
	}

	r := &Review{
		ID:        uuid.NewString(),
		UserID:    userID,
		ItemID:    itemID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	agg, err := s.repo.AddRating(ctx, itemID, rating)
	if err != nil {
		// the review is stored; the aggregate lags until the next rating
		logger.FromContext(ctx, s.log).Error("failed to update item rating",
			zap.String("item_id", itemID), zap.Error(err))
		return r, nil
	}

	logger.FromContext(ctx, s.log).Info("review added",
		zap.String("item_id", itemID),
		zap.Int("rating", rating),
		zap.Float64("average", agg.Average()))
	return r, nil
}

// ItemReviews lists an item's reviews newest first with its average rating.
func (s *Service) ItemReviews(ctx context.Context, itemID string) (*ItemReviews, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, ErrItemIDRequired
	}

	list, err := s.repo.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	agg, err := s.repo.GetAggregate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return &ItemReviews{Reviews: list, AverageRating: agg.Average()}, nil
}

func (s *Service) Averages(ctx context.Context) ([]ItemAverage, error) {
	aggs, err := s.repo.ListAggregates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ItemAverage, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, ItemAverage{ItemID: a.ItemID, AverageRating: a.Average()})
	}
	return out, nil
}
