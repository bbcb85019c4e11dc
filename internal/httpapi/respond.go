package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Chetan2520/india-food-court/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx reply. Message is safe to show
// to customers.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`

	// Set on distance denials.
	DistanceMeters    float64 `json:"distanceMeters,omitempty"`
	MinDistanceMeters float64 `json:"minDistanceMeters,omitempty"`
}

const msgServerError = "Server error"

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.FromContext(r.Context(), nil).Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{Message: message, Code: code})
}

func respondServerError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context(), nil).Error("request failed", zap.Error(err))
	respondError(w, r, http.StatusInternalServerError, "internal_error", msgServerError)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, "request_too_large", "Request body is too large")
			return false
		}
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
