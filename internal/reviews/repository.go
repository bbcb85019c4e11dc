package reviews

import "context"

type Repository interface {
	ItemExists(ctx context.Context, itemID string) (bool, error)
	// Create returns ErrAlreadyReviewed when the user already reviewed the item.
	Create(ctx context.Context, r *Review) error
	// AddRating folds one rating into the item's aggregate and returns the result.
	AddRating(ctx context.Context, itemID string, rating int) (Aggregate, error)
	ListByItem(ctx context.Context, itemID string) ([]*Review, error)
	GetAggregate(ctx context.Context, itemID string) (Aggregate, error)
	ListAggregates(ctx context.Context) ([]Aggregate, error)
}
