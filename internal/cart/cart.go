// Package cart aggregates menu items into cart lines keyed by item id and
// prices them with the discount-price fallback.
package cart

import "context"

// Item is the catalog snapshot taken when an item is first added.
type Item struct {
	ID            string
	Name          string
	OriginalPrice float64
	DiscountPrice float64 // zero means no discount
	Image         string
}

// Line is one aggregated cart entry. The JSON shape matches what the web
// client keeps under the "cart" storage key and posts to /api/orders.
type Line struct {
	ItemID        string  `json:"_id" bson:"_id"`
	Name          string  `json:"name" bson:"name"`
	OriginalPrice float64 `json:"originalPrice" bson:"originalPrice"`
	DiscountPrice float64 `json:"discountPrice,omitempty" bson:"discountPrice,omitempty"`
	Image         string  `json:"image,omitempty" bson:"image,omitempty"`
	Qty           int     `json:"qty" bson:"qty"`
}

// EffectivePrice is the discount price when set, else the original price, else 0.
func EffectivePrice(l Line) float64 {
	if l.DiscountPrice > 0 {
		return l.DiscountPrice
	}
	if l.OriginalPrice > 0 {
		return l.OriginalPrice
	}
	return 0
}

// Total sums EffectivePrice * Qty over lines.
func Total(lines []Line) float64 {
	var total float64
	for _, l := range lines {
		total += EffectivePrice(l) * float64(l.Qty)
	}
	return total
}

// Store persists one session's cart. Implementations must survive restarts.
type Store interface {
	LoadCart(ctx context.Context) ([]Line, error)
	SaveCart(ctx context.Context, lines []Line) error
}
