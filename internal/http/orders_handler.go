package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/CerenTurker/E-Commerce-API/internal/domain"
	"github.com/CerenTurker/E-Commerce-API/internal/service"
)

type OrdersHandler struct {
	orders *service.OrderService
}

func NewOrdersHandler(orders *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())

	orders, err := h.orders.ListOrders(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	dtos := make([]orderResponseDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, toOrderDTO(order))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID, getUserIDFromContext(r.Context()), getRoleFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

// POST /api/v1/orders/{order_id}/cancel
func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Cancel(r.Context(), orderID, getUserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

// POST /api/v1/orders/{order_id}/refund
func (h *OrdersHandler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Refund(r.Context(), orderID, getRoleFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

// POST /api/v1/orders/{order_id}/deliver
func (h *OrdersHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.MarkDelivered(r.Context(), orderID, getRoleFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

// POST /api/v1/orders/{order_id}/pay
func (h *OrdersHandler) PayOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Pay(r.Context(), orderID, getUserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	status := http.StatusOK
	if order.PaymentStatus == domain.PaymentStatusFailed {
		status = http.StatusPaymentRequired
	}
	respondJSON(w, status, toOrderDTO(order))
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid order id")
		return uuid.Nil, false
	}
	return orderID, true
}
