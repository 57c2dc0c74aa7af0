package models

import "time"

type EventOutcome string

const (
	EventProcessing   EventOutcome = "processing"
	EventCompleted    EventOutcome = "completed"
	EventPartial      EventOutcome = "partial"
	EventDecodeFailed EventOutcome = "decode_failed"
	EventLookupFailed EventOutcome = "lookup_failed"
	EventIgnored      EventOutcome = "ignored"
)

// WebhookEvent is one row of the idempotency ledger. A processor may
// redeliver the same event id; only lookup_failed rows are retried.
type WebhookEvent struct {
	EventID       string
	EventType     string
	PaymentID     string
	OrderID       string
	PaymentStatus string
	Outcome       EventOutcome
	ReceivedAt    time.Time
	UpdatedAt     time.Time
}

type DisbursementStatus string

const (
	DisbursementPending DisbursementStatus = "pending"
	DisbursementSent    DisbursementStatus = "sent"
	DisbursementFailed  DisbursementStatus = "failed"
)

// Disbursement is a durable token-transfer task, one per order line item.
type Disbursement struct {
	ID               string
	EventID          string
	OrderID          string
	LineItem         string
	TokenAddress     string
	RecipientAddress string
	Amount           int64
	Status           DisbursementStatus
	Attempts         int
	NextAttemptAt    time.Time
	TransactionID    *string
	LastError        *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
