// Package httpapi is the storefront's JSON HTTP surface.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Orders  OrderService
	Shop    ShopService
	Reviews ReviewService

	// OrderLimiter throttles POST /api/orders; nil disables it.
	OrderLimiter *RateLimiter
	// Ready reports dependency health for /health; nil always passes.
	Ready func(ctx context.Context) error
	// TrustProxy rewrites RemoteAddr from X-Forwarded-For / X-Real-IP. Leave
	// it off unless a proxy in front overwrites those headers, otherwise
	// clients choose their own rate-limit key.
	TrustProxy bool

	Log                *zap.Logger
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	CORSOrigins        []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	ordersHandler := NewOrdersHandler(cfg.Orders, cfg.RequestTimeout)
	shopHandler := NewShopHandler(cfg.Shop, cfg.RequestTimeout)
	reviewsHandler := NewReviewsHandler(cfg.Reviews, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(MaxBodySize(cfg.MaxRequestBodySize))
	r.Use(UserIDMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				respondJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			if cfg.OrderLimiter != nil {
				r.With(cfg.OrderLimiter.Limit).Post("/", ordersHandler.PlaceOrder)
			} else {
				r.Post("/", ordersHandler.PlaceOrder)
			}
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{orderId}", ordersHandler.GetOrder)
		})
		r.Get("/shop", shopHandler.GetShop)
		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", reviewsHandler.Averages)
			r.Get("/{itemId}", reviewsHandler.ItemReviews)
			r.Post("/{itemId}", reviewsHandler.CreateReview)
		})
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(r)

	return otelhttp.NewHandler(corsHandler, "storefront-api")
}
