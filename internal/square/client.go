package square

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiVersion = "2024-06-04"

var ErrOrderNotFound = errors.New("square: order not found")

type Client struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type LineItem struct {
	Name           string `json:"name"`
	Quantity       string `json:"quantity"`
	BasePriceMoney *Money `json:"base_price_money,omitempty"`
}

type Order struct {
	ID         string     `json:"id"`
	LocationID string     `json:"location_id"`
	State      string     `json:"state"`
	LineItems  []LineItem `json:"line_items"`
	TotalMoney *Money     `json:"total_money"`
	CreatedAt  string     `json:"created_at"`
}

type PaymentLink struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
	URL     string `json:"url"`
	OrderID string `json:"order_id"`
}

type CreatePaymentLinkRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Order          struct {
		LocationID string     `json:"location_id"`
		LineItems  []LineItem `json:"line_items"`
	} `json:"order"`
	CheckoutOptions struct {
		RedirectURL           string `json:"redirect_url,omitempty"`
		AskForShippingAddress bool   `json:"ask_for_shipping_address"`
	} `json:"checkout_options"`
	PaymentNote      string `json:"payment_note,omitempty"`
	PrePopulatedData *struct {
		BuyerEmail string `json:"buyer_email"`
	} `json:"pre_populated_data,omitempty"`
}

type paymentLinkResponse struct {
	PaymentLink *PaymentLink `json:"payment_link"`
}

func (c *Client) CreatePaymentLink(ctx context.Context, req *CreatePaymentLinkRequest) (*PaymentLink, error) {
	var resp paymentLinkResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v2/online-checkout/payment-links", req, &resp); err != nil {
		return nil, err
	}
	if resp.PaymentLink == nil || resp.PaymentLink.URL == "" {
		return nil, errors.New("square: payment link missing from response")
	}
	return resp.PaymentLink, nil
}

// UpdatePaymentLinkRedirect rewrites the link's redirect URL. The create call
// does not know the order id yet, so the success redirect is patched in after
// creation, same as the original checkout flow did.
func (c *Client) UpdatePaymentLinkRedirect(ctx context.Context, linkID string, version int, redirectURL string) (*PaymentLink, error) {
	body := map[string]any{
		"payment_link": map[string]any{
			"version": version,
			"checkout_options": map[string]any{
				"redirect_url": redirectURL,
			},
		},
	}
	var resp paymentLinkResponse
	if err := c.doJSON(ctx, http.MethodPut, "/v2/online-checkout/payment-links/"+linkID, body, &resp); err != nil {
		return nil, err
	}
	if resp.PaymentLink == nil || resp.PaymentLink.URL == "" {
		return nil, errors.New("square: payment link missing from response")
	}
	return resp.PaymentLink, nil
}

func (c *Client) RetrieveOrder(ctx context.Context, orderID string) (*Order, error) {
	var resp struct {
		Order *Order `json:"order"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/v2/orders/"+orderID, nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if resp.Order == nil {
		return nil, ErrOrderNotFound
	}
	return resp.Order, nil
}

func (c *Client) SearchOrders(ctx context.Context, locationIDs []string) ([]Order, error) {
	body := map[string]any{
		"location_ids": locationIDs,
		"query":        map[string]any{},
	}
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v2/orders/search", body, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

type APIError struct {
	StatusCode int
	Errors     []struct {
		Category string `json:"category"`
		Code     string `json:"code"`
		Detail   string `json:"detail"`
	} `json:"errors"`
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("square api status %d: %s %s", e.StatusCode, e.Errors[0].Code, e.Errors[0].Detail)
	}
	return fmt.Sprintf("square api status %d", e.StatusCode)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Square-Version", apiVersion)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
