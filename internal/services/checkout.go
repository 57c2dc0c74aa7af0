package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"AwabarTickets/internal/prex"
	"AwabarTickets/internal/square"

	"github.com/google/uuid"
)

var (
	ErrNoTickets        = errors.New("no tickets selected")
	ErrInvalidTicket    = errors.New("ticket has invalid price or quantity")
	ErrInvalidRecipient = errors.New("recipient address is not a hex address")
)

type TicketSelection struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

type CheckoutRequest struct {
	UserID     string            `json:"userId"`
	Email      string            `json:"email"`
	EthAddress string            `json:"ethAddress"`
	Tickets    []TicketSelection `json:"tickets"`
}

type CheckoutResult struct {
	CheckoutURL string `json:"checkoutUrl"`
	OrderID     string `json:"orderId"`
}

type PaymentLinker interface {
	CreatePaymentLink(ctx context.Context, req *square.CreatePaymentLinkRequest) (*square.PaymentLink, error)
	UpdatePaymentLinkRedirect(ctx context.Context, linkID string, version int, redirectURL string) (*square.PaymentLink, error)
}

// CheckoutService turns a ticket selection into a hosted payment link whose
// order note carries the buyer's recipient address for later disbursement.
type CheckoutService struct {
	Square     PaymentLinker
	LocationID string
	BaseURL    string
	Currency   string
}

func (s *CheckoutService) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	if len(req.Tickets) == 0 {
		return nil, ErrNoTickets
	}
	if !prex.IsHexAddress(req.EthAddress) {
		return nil, ErrInvalidRecipient
	}

	linkReq := &square.CreatePaymentLinkRequest{
		IdempotencyKey: uuid.NewString(),
	}
	linkReq.Order.LocationID = s.LocationID
	for _, t := range req.Tickets {
		if t.Price <= 0 || t.Quantity <= 0 {
			return nil, ErrInvalidTicket
		}
		linkReq.Order.LineItems = append(linkReq.Order.LineItems, square.LineItem{
			Name:     t.Name,
			Quantity: strconv.FormatInt(t.Quantity, 10),
			BasePriceMoney: &square.Money{
				Amount:   t.Price,
				Currency: s.Currency,
			},
		})
	}

	note, err := json.Marshal(map[string]string{"ethAddress": req.EthAddress})
	if err != nil {
		return nil, err
	}
	linkReq.PaymentNote = string(note)

	if strings.Contains(req.Email, "@") {
		linkReq.PrePopulatedData = &struct {
			BuyerEmail string `json:"buyer_email"`
		}{BuyerEmail: req.Email}
	}

	link, err := s.Square.CreatePaymentLink(ctx, linkReq)
	if err != nil {
		return nil, fmt.Errorf("create payment link: %w", err)
	}

	// The order id only exists after creation, so the success redirect is
	// patched onto the link in a second call.
	redirect := strings.TrimRight(s.BaseURL, "/") + "/success?order_id=" + link.OrderID
	updated, err := s.Square.UpdatePaymentLinkRedirect(ctx, link.ID, link.Version, redirect)
	if err != nil {
		return nil, fmt.Errorf("update payment link: %w", err)
	}

	return &CheckoutResult{
		CheckoutURL: updated.URL,
		OrderID:     link.OrderID,
	}, nil
}
