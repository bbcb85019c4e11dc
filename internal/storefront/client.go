package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Chetan2520/india-food-court/internal/cart"
	"github.com/Chetan2520/india-food-court/internal/geo"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIError is a non-2xx reply from the storefront API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	// Err is a *geo.ProximityError for distance denials.
	Err error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("storefront api returned status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

type OrderRequest struct {
	Items       []cart.Line `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	UserLat     float64     `json:"userLat"`
	UserLng     float64     `json:"userLng"`
}

type orderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

type errorResponse struct {
	Message           string  `json:"message"`
	Code              string  `json:"code"`
	DistanceMeters    float64 `json:"distanceMeters"`
	MinDistanceMeters float64 `json:"minDistanceMeters"`
}

type ShopInfo struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

func (s ShopInfo) Location() geo.Coordinate {
	return geo.Coordinate{Latitude: s.Lat, Longitude: s.Lng}
}

// APIClient talks to cmd/storefront-api. Server errors and transport failures
// count towards a circuit breaker; 4xx replies do not.
type APIClient struct {
	baseURL string
	userID  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
}

func NewAPIClient(baseURL, userID string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return newAPIClient(baseURL, userID, client)
}

func newAPIClient(baseURL, userID string, client *http.Client) *APIClient {
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "storefront-api",
		MaxRequests: 1,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &APIClient{baseURL: baseURL, userID: userID, http: client, cb: cb}
}

// PlaceOrder submits the order and returns the new order id.
func (c *APIClient) PlaceOrder(ctx context.Context, req OrderRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "/orders", body, http.StatusCreated)
	if err != nil {
		return "", err
	}

	var resp orderResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}
	if !resp.Success || resp.OrderID == "" {
		return "", fmt.Errorf("order response missing order id")
	}
	return resp.OrderID, nil
}

func (c *APIClient) Shop(ctx context.Context) (ShopInfo, error) {
	data, err := c.do(ctx, http.MethodGet, "/shop", nil, http.StatusOK)
	if err != nil {
		return ShopInfo{}, err
	}
	var s ShopInfo
	if err := json.Unmarshal(data, &s); err != nil {
		return ShopInfo{}, fmt.Errorf("decode shop response: %w", err)
	}
	return s, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body []byte, want int) ([]byte, error) {
	data, err := c.cb.Execute(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.userID != "" {
			req.Header.Set("X-User-ID", c.userID)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != want {
			return nil, decodeAPIError(resp.StatusCode, data)
		}
		return data, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("storefront api unavailable: %w", err)
	}
	return data, err
}

func decodeAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var body errorResponse
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Message = body.Message
		apiErr.Code = body.Code
		if status == http.StatusForbidden && body.Code == "too_close" {
			apiErr.Err = &geo.ProximityError{
				DistanceMeters:    body.DistanceMeters,
				MinDistanceMeters: body.MinDistanceMeters,
			}
		}
	}
	return apiErr
}
