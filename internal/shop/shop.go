// Package shop owns the single shop record whose location anchors the order
// eligibility check.
package shop

import (
	"context"
	"errors"

	"github.com/Chetan2520/india-food-court/internal/geo"
)

var (
	// ErrShopNotFound means no shop record exists; requests that need the
	// shop location fail with it.
	ErrShopNotFound = errors.New("shop not found")
	ErrCacheMiss    = errors.New("shop cache miss")
)

type Shop struct {
	Name     string         `json:"name"`
	Location geo.Coordinate `json:"location"`
}

// DefaultShop is the record seeded into an empty database.
func DefaultShop() Shop {
	return Shop{
		Name: "India Food Court Canteen",
		Location: geo.Coordinate{
			Latitude:  22.755048346589977,
			Longitude: 75.90500545632862,
		},
	}
}

type Repository interface {
	Get(ctx context.Context) (*Shop, error)
	// SeedIfEmpty inserts s when no shop exists and reports whether it did.
	SeedIfEmpty(ctx context.Context, s Shop) (bool, error)
}

// Cache is optional; a nil Cache disables caching.
type Cache interface {
	Get(ctx context.Context) (*Shop, error)
	Set(ctx context.Context, s *Shop) error
	Delete(ctx context.Context) error
}
