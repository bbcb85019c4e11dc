// Package storefront is the customer side of ordering: it finds where the
// customer is, checks the distance rule locally and submits the cart.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Chetan2520/india-food-court/internal/geo"
	"github.com/sony/gobreaker/v2"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrLocationPending     = errors.New("location request already in progress")
)

// GeolocationProvider is the device's location source.
type GeolocationProvider interface {
	CurrentPosition(ctx context.Context) (geo.Coordinate, error)
}

type GeolocationKind int

const (
	DeniedKind GeolocationKind = iota + 1
	TimeoutKind
	UnavailableKind
)

func (k GeolocationKind) String() string {
	switch k {
	case DeniedKind:
		return "denied"
	case TimeoutKind:
		return "timeout"
	case UnavailableKind:
		return "unavailable"
	default:
		return "unknown"
	}
}

// GeolocationError is returned by Locator when no coordinate could be obtained.
type GeolocationError struct {
	Kind GeolocationKind
	Err  error
}

func (e *GeolocationError) Error() string {
	switch e.Kind {
	case DeniedKind:
		return "Location access denied! Please enable location in your device or browser settings to place orders."
	case TimeoutKind:
		return "Timed out getting your location. Please try again."
	default:
		if e.Err != nil {
			return fmt.Sprintf("Failed to get location. Please try again or enable GPS. (%v)", e.Err)
		}
		return "Failed to get location. Please try again or enable GPS."
	}
}

func (e *GeolocationError) Unwrap() error { return e.Err }

// Retryable is false for a denial; the customer has to change a setting first.
func (e *GeolocationError) Retryable() bool { return e.Kind != DeniedKind }

// StaticProvider always reports the same coordinate.
type StaticProvider struct {
	Coordinate geo.Coordinate
}

func (p StaticProvider) CurrentPosition(ctx context.Context) (geo.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return geo.Coordinate{}, err
	}
	return p.Coordinate, nil
}

// DeniedProvider models a device with location switched off.
type DeniedProvider struct{}

func (DeniedProvider) CurrentPosition(context.Context) (geo.Coordinate, error) {
	return geo.Coordinate{}, ErrPermissionDenied
}

// ProviderFunc adapts a function to GeolocationProvider.
type ProviderFunc func(ctx context.Context) (geo.Coordinate, error)

func (f ProviderFunc) CurrentPosition(ctx context.Context) (geo.Coordinate, error) { return f(ctx) }

// IPProvider approximates the position from the public IP address using an
// ip-api.com compatible endpoint. Repeated failures open a circuit breaker so
// an unreachable service fails fast.
type IPProvider struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[geo.Coordinate]
}

type ipLookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func NewIPProvider(url string, client *http.Client) *IPProvider {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	cb := gobreaker.NewCircuitBreaker[geo.Coordinate](gobreaker.Settings{
		Name:        "geoip",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// a cancelled caller says nothing about the service
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &IPProvider{url: url, client: client, cb: cb}
}

func (p *IPProvider) CurrentPosition(ctx context.Context) (geo.Coordinate, error) {
	c, err := p.cb.Execute(func() (geo.Coordinate, error) {
		return p.lookup(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return geo.Coordinate{}, fmt.Errorf("%w: %w", ErrPositionUnavailable, err)
	}
	return c, err
}

func (p *IPProvider) lookup(ctx context.Context) (geo.Coordinate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("build geoip request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geoip request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Coordinate{}, fmt.Errorf("%w: geoip status %d", ErrPositionUnavailable, resp.StatusCode)
	}

	var body ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return geo.Coordinate{}, fmt.Errorf("decode geoip response: %w", err)
	}
	if body.Status != "success" {
		return geo.Coordinate{}, fmt.Errorf("%w: %s", ErrPositionUnavailable, body.Message)
	}

	c := geo.Coordinate{Latitude: body.Lat, Longitude: body.Lon}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("%w: invalid coordinate", ErrPositionUnavailable)
	}
	return c, nil
}
