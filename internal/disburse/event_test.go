package disburse

import (
	"errors"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	body := []byte(`{
		"event_id": "evt-1",
		"type": "payment.updated",
		"data": {"object": {"payment": {
			"id": "pay-1",
			"status": "COMPLETED",
			"order_id": "O1",
			"note": "{\"ethAddress\":\"0x0\"}",
			"amount_money": {"amount": 7000, "currency": "JPY"}
		}}}
	}`)

	env, err := DecodeEnvelope(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != EventTypePaymentUpdated {
		t.Fatalf("unexpected type %q", env.Type)
	}
	p := env.Data.Object.Payment
	if p.ID != "pay-1" || p.Status != PaymentCompleted || p.OrderID != "O1" {
		t.Fatalf("unexpected payment %+v", p)
	}
	if p.AmountMoney.Amount != 7000 || p.AmountMoney.Currency != "JPY" {
		t.Fatalf("unexpected amount %+v", p.AmountMoney)
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	for _, body := range []string{`{"bad json`, `{"data":{}}`} {
		if _, err := DecodeEnvelope([]byte(body)); !errors.Is(err, ErrMalformedEvent) {
			t.Errorf("body %q: expected ErrMalformedEvent, got %v", body, err)
		}
	}
}

func TestLedgerKey(t *testing.T) {
	env := &Envelope{EventID: "evt-1"}
	env.Data.Object.Payment.ID = "pay-1"
	if env.LedgerKey() != "evt-1" {
		t.Fatalf("expected event id, got %s", env.LedgerKey())
	}

	env.EventID = ""
	if env.LedgerKey() != "pay-1" {
		t.Fatalf("expected payment id fallback, got %s", env.LedgerKey())
	}
}
