package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
	"github.com/CerenTurker/E-Commerce-API/internal/service"
)

type CartHandler struct {
	carts *service.CartService
}

func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequestDTO struct {
	Quantity int `json:"quantity"`
}

type cartLineDTO struct {
	ID        string    `json:"id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type cartResponseDTO struct {
	UserID        string        `json:"user_id"`
	Lines         []cartLineDTO `json:"lines"`
	ItemCount     int           `json:"item_count"`
	TotalQuantity int           `json:"total_quantity"`
	Subtotal      string        `json:"subtotal"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())

	cart, summary, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartDTO(cart, summary))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())

	var req addItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.carts.AddItem(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
		respondServiceError(w, err)
		return
	}

	h.respondWithCart(w, r, http.StatusCreated)
}

// PUT /api/v1/cart/items/{line_id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())

	lineID, err := uuid.Parse(chi.URLParam(r, "line_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid line id")
		return
	}

	var req updateItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.carts.UpdateItem(r.Context(), userID, lineID, req.Quantity); err != nil {
		respondServiceError(w, err)
		return
	}

	h.respondWithCart(w, r, http.StatusOK)
}

// DELETE /api/v1/cart/items/{line_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())

	lineID, err := uuid.Parse(chi.URLParam(r, "line_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid line id")
		return
	}

	if err := h.carts.RemoveItem(r.Context(), userID, lineID); err != nil {
		respondServiceError(w, err)
		return
	}

	h.respondWithCart(w, r, http.StatusOK)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())

	if err := h.carts.Clear(r.Context(), userID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *CartHandler) respondWithCart(w http.ResponseWriter, r *http.Request, status int) {
	cart, summary, err := h.carts.GetCart(r.Context(), getUserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, status, toCartDTO(cart, summary))
}

func toCartDTO(cart *domain.Cart, summary *domain.CartSummary) cartResponseDTO {
	lines := make([]cartLineDTO, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, cartLineDTO{
			ID:        line.ID.String(),
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			AddedAt:   line.AddedAt,
		})
	}
	return cartResponseDTO{
		UserID:        cart.UserID,
		Lines:         lines,
		ItemCount:     summary.ItemCount,
		TotalQuantity: summary.TotalQuantity,
		Subtotal:      summary.Subtotal.StringFixed(2),
	}
}
