package geo

import (
	"fmt"
	"math"
)

// DefaultMinDistanceMeters is the radius around the shop inside which orders
// are refused.
const DefaultMinDistanceMeters = 500.0

// Eligibility is the outcome of one gate evaluation. It is never persisted.
type Eligibility struct {
	Allowed        bool
	DistanceMeters float64
	Reason         string
}

// ProximityError reports an order attempted from inside the exclusion zone.
type ProximityError struct {
	DistanceMeters    float64
	MinDistanceMeters float64
}

func (e *ProximityError) Error() string {
	return fmt.Sprintf("You are only %dm away! Must be more than %sm from the shop to order.",
		int64(math.Round(e.DistanceMeters)), formatMeters(e.MinDistanceMeters))
}

// Gate applies the deny-if-near rule: an order is allowed only when the
// requester is strictly farther than MinDistanceMeters from the shop.
type Gate struct {
	MinDistanceMeters float64
}

func NewGate(minDistanceMeters float64) Gate {
	if minDistanceMeters <= 0 {
		minDistanceMeters = DefaultMinDistanceMeters
	}
	return Gate{MinDistanceMeters: minDistanceMeters}
}

func (g Gate) Evaluate(user, shop Coordinate) Eligibility {
	d := Distance(user, shop)
	if d > g.MinDistanceMeters {
		return Eligibility{Allowed: true, DistanceMeters: d}
	}
	err := &ProximityError{DistanceMeters: d, MinDistanceMeters: g.MinDistanceMeters}
	return Eligibility{Allowed: false, DistanceMeters: d, Reason: err.Error()}
}

// Check is Evaluate expressed as an error; a denial is a *ProximityError.
func (g Gate) Check(user, shop Coordinate) (float64, error) {
	res := g.Evaluate(user, shop)
	if !res.Allowed {
		return res.DistanceMeters, &ProximityError{DistanceMeters: res.DistanceMeters, MinDistanceMeters: g.MinDistanceMeters}
	}
	return res.DistanceMeters, nil
}

func formatMeters(m float64) string {
	if m == math.Trunc(m) {
		return fmt.Sprintf("%d", int64(m))
	}
	return fmt.Sprintf("%.1f", m)
}
