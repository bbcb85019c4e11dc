package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Chetan2520/india-food-court/internal/geo"
	"github.com/Chetan2520/india-food-court/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, userID string, req orders.PlaceOrderRequest) (*orders.Order, error)
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*orders.Order, error)
}

type OrdersHandler struct {
	svc     OrderService
	timeout time.Duration
}

func NewOrdersHandler(svc OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{svc: svc, timeout: timeout}
}

type PlaceOrderResponseDTO struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

// POST /api/orders
func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req orders.PlaceOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.svc.PlaceOrder(ctx, getUserIDFromContext(r.Context()), req)
	if err != nil {
		var verr *orders.ValidationError
		var perr *geo.ProximityError
		switch {
		case errors.As(err, &verr):
			respondError(w, r, http.StatusBadRequest, "validation_error", verr.Message)
		case errors.As(err, &perr):
			respondJSON(w, r, http.StatusForbidden, ErrorResponse{
				Message:           perr.Error(),
				Code:              "too_close",
				DistanceMeters:    perr.DistanceMeters,
				MinDistanceMeters: perr.MinDistanceMeters,
			})
		default:
			respondServerError(w, r, err)
		}
		return
	}

	respondJSON(w, r, http.StatusCreated, PlaceOrderResponseDTO{
		Success: true,
		Message: "Order placed successfully!",
		OrderID: order.ID,
	})
}

// GET /api/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.svc.ListOrders(ctx, getUserIDFromContext(r.Context()))
	if err != nil {
		respondServerError(w, r, err)
		return
	}
	if list == nil {
		list = []*orders.Order{}
	}
	respondJSON(w, r, http.StatusOK, list)
}

// GET /api/orders/{orderId}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		respondError(w, r, http.StatusBadRequest, "missing_order_id", "orderId is required")
		return
	}

	order, err := h.svc.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			respondError(w, r, http.StatusNotFound, "not_found", "Order not found")
			return
		}
		respondServerError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, order)
}
