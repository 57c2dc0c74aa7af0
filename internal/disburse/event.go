package disburse

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	EventTypePaymentUpdated = "payment.updated"
	PaymentCompleted        = "COMPLETED"
)

var ErrMalformedEvent = errors.New("malformed event body")

type AmountMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// PaymentEvent is the payment object embedded in a payment.updated webhook.
// Status transitions are owned entirely by the processor.
type PaymentEvent struct {
	ID          string      `json:"id"`
	AmountMoney AmountMoney `json:"amount_money"`
	Status      string      `json:"status"`
	OrderID     string      `json:"order_id"`
	Note        string      `json:"note"`
}

type Envelope struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Data    struct {
		Object struct {
			Payment PaymentEvent `json:"payment"`
		} `json:"object"`
	} `json:"data"`
}

func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	return &env, nil
}

// LedgerKey identifies the event for deduplication. Square sends a distinct
// event_id per notification; the payment id is the fallback for payloads
// that omit it.
func (e *Envelope) LedgerKey() string {
	if e.EventID != "" {
		return e.EventID
	}
	return e.Data.Object.Payment.ID
}
