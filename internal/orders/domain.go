// Package orders accepts orders from the storefront. Every order is re-checked
// against the shop location before it is stored.
package orders

import (
	"time"

	"github.com/Chetan2520/india-food-court/internal/cart"
)

type Status string

const StatusPending Status = "pending"

// Item is the priced snapshot of a cart line at the time of ordering.
type Item struct {
	ItemID string  `json:"itemId" bson:"itemId"`
	Name   string  `json:"name" bson:"name"`
	Price  float64 `json:"price" bson:"price"`
	Image  string  `json:"image,omitempty" bson:"image,omitempty"`
	Qty    int     `json:"qty" bson:"qty"`
}

type Order struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"userId" bson:"userId"`
	Items       []Item    `json:"items" bson:"items"`
	TotalAmount float64   `json:"totalAmount" bson:"totalAmount"`
	UserLat     float64   `json:"userLat" bson:"userLat"`
	UserLng     float64   `json:"userLng" bson:"userLng"`
	Status      Status    `json:"status" bson:"status"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// PlaceOrderRequest is the body of POST /api/orders. Pointer fields separate
// "missing" from zero.
type PlaceOrderRequest struct {
	Items       []cart.Line `json:"items"`
	TotalAmount *float64    `json:"totalAmount"`
	UserLat     *float64    `json:"userLat"`
	UserLng     *float64    `json:"userLng"`
}

// PlacedEvent is published after an order is stored.
type PlacedEvent struct {
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	TotalAmount float64   `json:"totalAmount"`
	ItemCount   int       `json:"itemCount"`
	PlacedAt    time.Time `json:"placedAt"`
}
