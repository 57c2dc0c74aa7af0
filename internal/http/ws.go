package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"AwabarTickets/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type DisbursementLister interface {
	ListByOrder(ctx context.Context, orderID string) ([]*models.Disbursement, error)
}

// OrderFeed pushes disbursement progress for one order over a websocket so
// the success page does not have to poll the status endpoint.
type OrderFeed struct {
	Store    DisbursementLister
	Interval time.Duration
}

type orderSnapshot struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Sent    int    `json:"sent"`
	Pending int    `json:"pending"`
	Failed  int    `json:"failed"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (f *OrderFeed) OrderEvents(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump: the client never sends data, but reading is how the close
	// frame is noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	interval := f.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last orderSnapshot
	for {
		snap, err := f.snapshot(ctx, orderID)
		if err != nil {
			log.Printf("order feed %s: %v", orderID, err)
			return
		}
		if snap != last {
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
			last = snap
		}
		if terminal(snap) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (f *OrderFeed) snapshot(ctx context.Context, orderID string) (orderSnapshot, error) {
	items, err := f.Store.ListByOrder(ctx, orderID)
	if err != nil {
		return orderSnapshot{}, err
	}

	snap := orderSnapshot{OrderID: orderID}
	for _, d := range items {
		switch d.Status {
		case models.DisbursementSent:
			snap.Sent++
		case models.DisbursementFailed:
			snap.Failed++
		default:
			snap.Pending++
		}
	}

	switch {
	case len(items) == 0:
		snap.Status = "waiting"
	case snap.Pending > 0:
		snap.Status = "disbursing"
	case snap.Failed > 0:
		snap.Status = "failed"
	default:
		snap.Status = "disbursed"
	}
	return snap, nil
}

func terminal(snap orderSnapshot) bool {
	return snap.Status == "disbursed" || snap.Status == "failed"
}
