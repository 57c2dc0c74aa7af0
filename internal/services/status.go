package services

import (
	"context"

	"AwabarTickets/internal/square"
)

type OrderAPI interface {
	RetrieveOrder(ctx context.Context, orderID string) (*square.Order, error)
	SearchOrders(ctx context.Context, locationIDs []string) ([]square.Order, error)
}

type PaymentStatus struct {
	OrderID       string `json:"orderId"`
	PaymentStatus string `json:"paymentStatus"`
	TotalAmount   int64  `json:"totalAmount"`
	Currency      string `json:"currency"`
	CreatedAt     string `json:"createdAt"`
}

type OrderSummary struct {
	ID         string            `json:"id"`
	TotalMoney *square.Money     `json:"totalMoney"`
	CreatedAt  string            `json:"createdAt"`
	LineItems  []square.LineItem `json:"lineItems"`
}

// StatusService answers the success page's "did my payment go through" and
// the history view. Both are read-through to the processor; nothing is
// cached locally.
type StatusService struct {
	Orders     OrderAPI
	LocationID string
}

func (s *StatusService) PaymentStatus(ctx context.Context, orderID string) (*PaymentStatus, error) {
	order, err := s.Orders.RetrieveOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	status := &PaymentStatus{
		OrderID:       order.ID,
		PaymentStatus: order.State,
		CreatedAt:     order.CreatedAt,
		Currency:      "Unknown",
	}
	if order.TotalMoney != nil {
		status.TotalAmount = order.TotalMoney.Amount
		status.Currency = order.TotalMoney.Currency
	}
	return status, nil
}

func (s *StatusService) History(ctx context.Context) ([]OrderSummary, error) {
	orders, err := s.Orders.SearchOrders(ctx, []string{s.LocationID})
	if err != nil {
		return nil, err
	}

	out := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderSummary{
			ID:         o.ID,
			TotalMoney: o.TotalMoney,
			CreatedAt:  o.CreatedAt,
			LineItems:  o.LineItems,
		})
	}
	return out, nil
}
