package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Chetan2520/india-food-court/internal/shop"
)

type ShopService interface {
	Shop(ctx context.Context) (*shop.Shop, error)
}

type ShopHandler struct {
	svc     ShopService
	timeout time.Duration
}

func NewShopHandler(svc ShopService, timeout time.Duration) *ShopHandler {
	return &ShopHandler{svc: svc, timeout: timeout}
}

type ShopResponseDTO struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// GET /api/shop
func (h *ShopHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, err := h.svc.Shop(ctx)
	if err != nil {
		if errors.Is(err, shop.ErrShopNotFound) {
			respondError(w, r, http.StatusNotFound, "not_found", "Shop location not configured")
			return
		}
		respondServerError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, ShopResponseDTO{
		Name: s.Name,
		Lat:  s.Location.Latitude,
		Lng:  s.Location.Longitude,
	})
}
