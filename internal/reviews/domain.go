// Package reviews stores one rating and comment per user and menu item, and
// keeps a running average per item.
package reviews

import (
	"math"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        string    `json:"_id" bson:"_id"`
	UserID    string    `json:"user" bson:"userId"`
	ItemID    string    `json:"item" bson:"itemId"`
	Rating    int       `json:"rating" bson:"rating"`
	Comment   string    `json:"comment" bson:"comment"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Aggregate is the running rating total for one item.
type Aggregate struct {
	ItemID string `bson:"_id"`
	Sum    int64  `bson:"sum"`
	Count  int64  `bson:"count"`
}

// Average is the mean rating rounded to one decimal, 0 when there are no ratings.
func (a Aggregate) Average() float64 {
	if a.Count == 0 {
		return 0
	}
	return roundTenth(float64(a.Sum) / float64(a.Count))
}

type ItemReviews struct {
	Reviews       []*Review `json:"reviews"`
	AverageRating float64   `json:"averageRating"`
}

type ItemAverage struct {
	ItemID        string  `json:"itemId"`
	AverageRating float64 `json:"averageRating"`
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
