package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(h *Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkout", h.CreateCheckout)
		r.Get("/payment-status", h.PaymentStatus)
		r.Get("/history", h.History)
		r.Post("/webhook", h.Webhook.HandleWebhook)
		r.Post("/pos/transactions", h.RegisterPOS)
		r.Get("/orders/{orderID}/events", h.Feed.OrderEvents)
	})

	return &Server{Router: r}
}
