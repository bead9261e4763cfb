package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	// Available is only set on insufficient-stock failures so clients
	// can offer the remaining quantity.
	ProductID *int64 `json:"product_id,omitempty"`
	Available *int   `json:"available,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: code, Message: message})
}

// respondServiceError maps the error taxonomy onto HTTP statuses. Every
// kind keeps its own code string, because clients react differently per
// kind (re-fetch stock, pick another address, retry later).
func respondServiceError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusConflict, errorResponse{
			Error:     "insufficient_stock",
			Message:   stockErr.Error(),
			ProductID: &stockErr.ProductID,
			Available: &stockErr.Available,
		})
	case errors.Is(err, domain.ErrValidation):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrConflict):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "unavailable", "storage temporarily unavailable, retry later")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
