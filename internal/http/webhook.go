package http

import (
	"errors"
	"io"
	"log"
	"net/http"

	"AwabarTickets/internal/disburse"
	"AwabarTickets/internal/models"
	"AwabarTickets/internal/square"
)

// WebhookHandler receives payment notifications from Square. The caller is
// the processor, not the end user, so responses are coarse status codes;
// everything interesting goes to the log.
type WebhookHandler struct {
	Verifier  square.Verifier
	Processor *disburse.Processor
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	signature := r.Header.Get("x-square-hmacsha256-signature")
	if err := h.Verifier.Verify(body, signature, requestURL(r)); err != nil {
		switch {
		case errors.Is(err, square.ErrSignatureMissing):
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Signature is required"})
		case errors.Is(err, square.ErrNotificationURLMismatch):
			log.Printf("webhook: %v (check square.notification_url against the developer portal)", err)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid signature"})
		default:
			log.Printf("webhook: %v", err)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid signature"})
		}
		return
	}

	env, err := disburse.DecodeEnvelope(body)
	if err != nil {
		log.Printf("webhook: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Invalid request"})
		return
	}

	result, err := h.Processor.Process(r.Context(), env)
	if err != nil {
		// A bad note can never succeed on redelivery, so ack it and let
		// the ledger record the drop.
		if errors.Is(err, disburse.ErrNoteDecode) {
			log.Printf("webhook event %s: %v", env.LedgerKey(), err)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook received"})
			return
		}
		log.Printf("webhook event %s: %v", env.LedgerKey(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Invalid request"})
		return
	}

	if result.Duplicate {
		log.Printf("webhook event %s: duplicate delivery ignored", env.LedgerKey())
	} else if result.Outcome == models.EventPartial {
		log.Printf("webhook event %s: partial disbursement sent=%d pending=%d", env.LedgerKey(), result.Sent, result.Pending)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook received"})
}

func requestURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
