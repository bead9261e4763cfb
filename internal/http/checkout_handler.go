package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
	"github.com/CerenTurker/E-Commerce-API/internal/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type checkoutRequestDTO struct {
	AddressID     string `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes,omitempty"`
}

type orderLineDTO struct {
	ID        string `json:"id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type orderResponseDTO struct {
	ID              string         `json:"id"`
	OrderNumber     string         `json:"order_number"`
	UserID          string         `json:"user_id"`
	ShippingAddress string         `json:"shipping_address"`
	Status          string         `json:"status"`
	PaymentStatus   string         `json:"payment_status"`
	PaymentMethod   string         `json:"payment_method"`
	Notes           string         `json:"notes,omitempty"`
	Subtotal        string         `json:"subtotal"`
	Tax             string         `json:"tax"`
	Shipping        string         `json:"shipping"`
	Total           string         `json:"total"`
	Lines           []orderLineDTO `json:"lines"`
	CreatedAt       time.Time      `json:"created_at"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())

	var req checkoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	addressID, err := uuid.Parse(req.AddressID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid address id")
		return
	}

	order, err := h.checkout.Checkout(r.Context(), service.CheckoutRequest{
		UserID:        userID,
		AddressID:     addressID,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderDTO(order))
}

func toOrderDTO(order *domain.Order) orderResponseDTO {
	lines := make([]orderLineDTO, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineDTO{
			ID:        line.ID.String(),
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Subtotal:  line.Subtotal.StringFixed(2),
		})
	}
	return orderResponseDTO{
		ID:              order.ID.String(),
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		ShippingAddress: order.ShippingAddress,
		Status:          order.Status.String(),
		PaymentStatus:   order.PaymentStatus.String(),
		PaymentMethod:   order.PaymentMethod,
		Notes:           order.Notes,
		Subtotal:        order.Subtotal.StringFixed(2),
		Tax:             order.Tax.StringFixed(2),
		Shipping:        order.Shipping.StringFixed(2),
		Total:           order.Total.StringFixed(2),
		Lines:           lines,
		CreatedAt:       order.CreatedAt,
	}
}
