package smaregi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var ErrTransactionTimeout = errors.New("smaregi: transaction did not complete in time")

// Client records sales in the Smaregi POS. Authentication is OAuth2
// client-credentials; the token is cached until shortly before expiry.
type Client struct {
	apiBase      string
	authURL      string
	clientID     string
	clientSecret string
	contractID   string
	client       *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(apiBase, authURL, clientID, clientSecret, contractID string) *Client {
	return &Client{
		apiBase:      strings.TrimRight(apiBase, "/"),
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		contractID:   contractID,
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

type Detail struct {
	ProductID            string `json:"productId"`
	ProductCode          string `json:"productCode"`
	ProductName          string `json:"productName"`
	TaxDivision          string `json:"taxDivision"`
	Price                string `json:"price"`
	Quantity             string `json:"quantity"`
	UnitPrice            string `json:"unitPrice"`
	Subtotal             string `json:"subtotal"`
	UnitDiscountPrice    string `json:"unitDiscountPrice"`
	UnitDiscountRate     string `json:"unitDiscountRate"`
	UnitDiscountDivision string `json:"unitDiscountDivision"`
	CostPrice            string `json:"costPrice"`
}

type Deposit struct {
	DepositOtherID    string `json:"depositOtherId"`
	DepositOtherName  string `json:"depositOtherName"`
	DepositOtherPrice string `json:"depositOtherPrice"`
}

type Transaction struct {
	TransactionHeadDivision string    `json:"transactionHeadDivision"`
	CancelDivision          string    `json:"cancelDivision"`
	Subtotal                string    `json:"subtotal"`
	SubtotalDiscountPrice   string    `json:"subtotalDiscountPrice"`
	Total                   string    `json:"total"`
	TaxInclude              string    `json:"taxInclude"`
	TaxExclude              string    `json:"taxExclude"`
	StoreID                 string    `json:"storeId"`
	TerminalID              string    `json:"terminalId"`
	TerminalTranID          string    `json:"terminalTranId"`
	TerminalTranDateTime    string    `json:"terminalTranDateTime"`
	SumDivision             string    `json:"sumDivision"`
	SumDate                 string    `json:"sumDate"`
	SellDivision            string    `json:"sellDivision"`
	TaxRate                 string    `json:"taxRate"`
	TaxRounding             string    `json:"taxRounding"`
	TransactionUUID         string    `json:"transactionUuid,omitempty"`
	Details                 []Detail  `json:"details"`
	DepositOthers           []Deposit `json:"depositOthers"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {"pos.transactions:write"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("smaregi token status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", errors.New("smaregi: empty access token")
	}

	c.token = token.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - 30*time.Second)
	return c.token, nil
}

func (c *Client) RegisterTransaction(ctx context.Context, tx *Transaction) (string, error) {
	var resp struct {
		ID json.Number `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/pos/transactions", tx, &resp); err != nil {
		return "", err
	}
	if resp.ID.String() == "" {
		return "", errors.New("smaregi: register response missing id")
	}
	return resp.ID.String(), nil
}

func (c *Client) GetTransactionStatus(ctx context.Context, id string) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/pos/transactions/"+id, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// WaitForCompletion polls the transaction until the POS reports it completed,
// checking at most attempts times with the given interval between checks.
func (c *Client) WaitForCompletion(ctx context.Context, id string, attempts int, interval time.Duration) error {
	for i := 0; i < attempts; i++ {
		status, err := c.GetTransactionStatus(ctx, id)
		if err != nil {
			return err
		}
		if status == "completed" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return ErrTransactionTimeout
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.apiBase + "/" + c.contractID + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("smaregi status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
