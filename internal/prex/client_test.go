package prex

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubSigner struct {
	digests [][]byte
}

func (s *stubSigner) Address() string { return "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf" }

func (s *stubSigner) SignDigest(digest []byte) ([]byte, error) {
	s.digests = append(s.digests, digest)
	sig := make([]byte, 65)
	sig[64] = 27
	return sig, nil
}

func TestTransfer(t *testing.T) {
	signer := &stubSigner{}
	digest := strings.Repeat("ab", 32)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key-1" {
			t.Errorf("missing api key, got %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/v1/transfers":
			var req transferRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode intent request: %v", err)
			}
			if req.ChainID != 421614 || req.PolicyID != "pol-1" {
				t.Errorf("unexpected policy fields %+v", req)
			}
			if req.From != signer.Address() || req.To != "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed" {
				t.Errorf("unexpected parties %+v", req)
			}
			if req.Amount != "3" {
				t.Errorf("expected amount as decimal string, got %q", req.Amount)
			}
			_ = json.NewEncoder(w).Encode(transferIntent{RequestID: "req-1", Digest: "0x" + digest})
		case "/v1/transfers/req-1/submit":
			var req submitRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode submit request: %v", err)
			}
			if !strings.HasPrefix(req.Signature, "0x") || len(req.Signature) != 2+130 {
				t.Errorf("unexpected signature %q", req.Signature)
			}
			_ = json.NewEncoder(w).Encode(submitResponse{TransactionID: "tx-1", Status: "SUBMITTED"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "key-1", "pol-1", 421614, signer)
	txID, err := c.Transfer(context.Background(), "0xToken", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", 3)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if txID != "tx-1" {
		t.Fatalf("expected tx-1, got %s", txID)
	}

	want, _ := hex.DecodeString(digest)
	if len(signer.digests) != 1 || hex.EncodeToString(signer.digests[0]) != hex.EncodeToString(want) {
		t.Fatalf("signer saw wrong digest: %x", signer.digests)
	}
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	c := NewClient("http://unused", "k", "p", 1, &stubSigner{})
	if _, err := c.Transfer(context.Background(), "0xToken", "0xRecipient", 0); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := c.Transfer(context.Background(), "0xToken", "0xRecipient", -1); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestTransferBadDigest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(transferIntent{RequestID: "req-1", Digest: "0xabc"})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", "p", 1, &stubSigner{})
	if _, err := c.Transfer(context.Background(), "0xToken", "0xRecipient", 1); err == nil {
		t.Fatal("expected error for short digest")
	}
}

func TestTransferServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", "p", 1, &stubSigner{})
	_, err := c.Transfer(context.Background(), "0xToken", "0xRecipient", 1)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error, got %v", err)
	}
}
