package orders

import (
	"context"

	"github.com/Chetan2520/india-food-court/internal/geo"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// ListByUser returns the user's orders newest first.
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
}

// Publisher announces placed orders to downstream consumers.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, e PlacedEvent) error
}

// ShopLocator supplies the shop coordinate for the distance check.
type ShopLocator interface {
	Location(ctx context.Context) (geo.Coordinate, error)
}
