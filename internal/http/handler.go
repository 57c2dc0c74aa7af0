package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"AwabarTickets/internal/services"
	"AwabarTickets/internal/smaregi"
	"AwabarTickets/internal/square"
)

type Handler struct {
	Checkout *services.CheckoutService
	Status   *services.StatusService
	POS      *services.POSService
	Webhook  *WebhookHandler
	Feed     *OrderFeed
}

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req services.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, err := h.Checkout.CreateCheckout(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoTickets):
			writeError(w, http.StatusBadRequest, "no tickets selected")
		case errors.Is(err, services.ErrInvalidTicket):
			writeError(w, http.StatusBadRequest, "ticket has invalid price or quantity")
		case errors.Is(err, services.ErrInvalidRecipient):
			writeError(w, http.StatusBadRequest, "ethAddress is not a valid address")
		default:
			writeError(w, http.StatusBadGateway, "payment link creation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	status, err := h.Status.PaymentStatus(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, square.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusBadGateway, "failed to check payment status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("userId") == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	orders, err := h.Status.History(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch payment history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

type registerPOSRequest struct {
	OrderID string `json:"orderId"`
}

func (h *Handler) RegisterPOS(w http.ResponseWriter, r *http.Request) {
	var req registerPOSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	id, err := h.POS.RegisterSale(r.Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, square.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, smaregi.ErrTransactionTimeout):
			writeError(w, http.StatusGatewayTimeout, "transaction registration timed out")
		default:
			writeError(w, http.StatusBadGateway, "failed to register transaction")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"transactionId": id})
}
