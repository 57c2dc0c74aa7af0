package prex

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client talks to the hosted-wallet transfer API. A transfer is a two-step
// exchange: request an intent (the service answers with the digest it wants
// authorized), sign the digest locally, submit the signature.
type Client struct {
	baseURL  string
	apiKey   string
	policyID string
	chainID  int64
	signer   Signer
	client   *http.Client
}

func NewClient(baseURL, apiKey, policyID string, chainID int64, signer Signer) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		policyID: policyID,
		chainID:  chainID,
		signer:   signer,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type transferRequest struct {
	ChainID  int64  `json:"chainId"`
	PolicyID string `json:"policyId"`
	Token    string `json:"token"`
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   string `json:"amount"`
}

type transferIntent struct {
	RequestID string `json:"requestId"`
	Digest    string `json:"digest"`
}

type submitRequest struct {
	Signature string `json:"signature"`
}

type submitResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

// Transfer moves amount units of token from the custodial wallet to the
// recipient and returns the hosted-wallet transaction id. The transfer is
// irreversible once submitted; callers own retry policy.
func (c *Client) Transfer(ctx context.Context, token, recipient string, amount int64) (string, error) {
	if amount <= 0 {
		return "", errors.New("prex: amount must be positive")
	}

	var intent transferIntent
	err := c.postJSON(ctx, "/v1/transfers", transferRequest{
		ChainID:  c.chainID,
		PolicyID: c.policyID,
		Token:    token,
		From:     c.signer.Address(),
		To:       recipient,
		Amount:   strconv.FormatInt(amount, 10),
	}, &intent)
	if err != nil {
		return "", fmt.Errorf("prex: request transfer: %w", err)
	}
	if intent.RequestID == "" {
		return "", errors.New("prex: transfer intent missing request id")
	}

	digest, err := hex.DecodeString(strings.TrimPrefix(intent.Digest, "0x"))
	if err != nil || len(digest) != 32 {
		return "", fmt.Errorf("prex: bad digest %q", intent.Digest)
	}

	sig, err := c.signer.SignDigest(digest)
	if err != nil {
		return "", fmt.Errorf("prex: sign digest: %w", err)
	}

	var result submitResponse
	err = c.postJSON(ctx, "/v1/transfers/"+intent.RequestID+"/submit", submitRequest{
		Signature: "0x" + hex.EncodeToString(sig),
	}, &result)
	if err != nil {
		return "", fmt.Errorf("prex: submit transfer: %w", err)
	}
	if result.TransactionID == "" {
		return "", errors.New("prex: submit response missing transaction id")
	}
	return result.TransactionID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("http status %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("http status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
