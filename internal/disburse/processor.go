package disburse

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"AwabarTickets/internal/models"
	"AwabarTickets/internal/square"

	"github.com/google/uuid"
)

// Ledger is the slice of the store the processor needs: event idempotency
// plus durable per-line-item tasks.
type Ledger interface {
	BeginEvent(ctx context.Context, ev *models.WebhookEvent) (bool, error)
	FinishEvent(ctx context.Context, eventID string, outcome models.EventOutcome) error
	CreateDisbursement(ctx context.Context, d *models.Disbursement) error
	MarkSent(ctx context.Context, id string, transactionID string) error
	MarkRetry(ctx context.Context, id string, nextAttempt time.Time, lastErr string) error
}

type OrderFetcher interface {
	RetrieveOrder(ctx context.Context, orderID string) (*square.Order, error)
}

type Transferrer interface {
	Transfer(ctx context.Context, token, recipient string, amount int64) (string, error)
}

type Result struct {
	Outcome   models.EventOutcome
	Duplicate bool
	Sent      int
	Pending   int
}

// Processor runs the payment-completion reconciliation: verify happened
// upstream; here the event is deduplicated, the order fetched, the recipient
// decoded from the note, and one transfer issued per line item.
type Processor struct {
	Ledger       Ledger
	Orders       OrderFetcher
	Wallet       Transferrer
	TokenAddress string
	RetryDelay   time.Duration
}

func (p *Processor) Process(ctx context.Context, env *Envelope) (Result, error) {
	if env.Type != EventTypePaymentUpdated {
		return Result{Outcome: models.EventIgnored}, nil
	}
	payment := env.Data.Object.Payment
	if payment.Status != PaymentCompleted {
		return Result{Outcome: models.EventIgnored}, nil
	}

	// Without an event id or payment id every such payload would share the
	// empty ledger key and shadow one another.
	eventID := env.LedgerKey()
	if eventID == "" {
		return Result{}, fmt.Errorf("%w: no event or payment id", ErrMalformedEvent)
	}

	began, err := p.Ledger.BeginEvent(ctx, &models.WebhookEvent{
		EventID:       eventID,
		EventType:     env.Type,
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		PaymentStatus: payment.Status,
	})
	if err != nil {
		return Result{}, fmt.Errorf("begin event: %w", err)
	}
	if !began {
		return Result{Outcome: models.EventIgnored, Duplicate: true}, nil
	}

	order, err := p.Orders.RetrieveOrder(ctx, payment.OrderID)
	if err != nil {
		p.finish(ctx, eventID, models.EventLookupFailed)
		return Result{Outcome: models.EventLookupFailed}, fmt.Errorf("order lookup: %w", err)
	}

	recipient, err := ParseRecipient(payment.Note)
	if err != nil {
		p.finish(ctx, eventID, models.EventDecodeFailed)
		return Result{Outcome: models.EventDecodeFailed}, err
	}

	res := Result{}
	now := time.Now().UTC()
	for _, item := range order.LineItems {
		qty, err := strconv.ParseInt(item.Quantity, 10, 64)
		if err != nil || qty <= 0 {
			log.Printf("event %s: skipping line item %q with quantity %q", eventID, item.Name, item.Quantity)
			continue
		}

		d := &models.Disbursement{
			ID:               uuid.NewString(),
			EventID:          eventID,
			OrderID:          payment.OrderID,
			LineItem:         item.Name,
			TokenAddress:     p.TokenAddress,
			RecipientAddress: recipient,
			Amount:           qty,
			Status:           models.DisbursementPending,
			NextAttemptAt:    now.Add(p.RetryDelay),
		}
		if err := p.Ledger.CreateDisbursement(ctx, d); err != nil {
			p.finish(ctx, eventID, models.EventPartial)
			return res, fmt.Errorf("create disbursement: %w", err)
		}

		// Inline first attempt. A failure here leaves the task pending for
		// the worker and must not stop the remaining line items.
		txID, err := p.Wallet.Transfer(ctx, d.TokenAddress, d.RecipientAddress, d.Amount)
		if err != nil {
			log.Printf("event %s: transfer for item %q failed, queued for retry: %v", eventID, item.Name, err)
			if markErr := p.Ledger.MarkRetry(ctx, d.ID, now.Add(p.RetryDelay), err.Error()); markErr != nil {
				log.Printf("event %s: mark retry failed: %v", eventID, markErr)
			}
			res.Pending++
			continue
		}
		if err := p.Ledger.MarkSent(ctx, d.ID, txID); err != nil {
			log.Printf("event %s: mark sent failed: %v", eventID, err)
		}
		res.Sent++
	}

	res.Outcome = models.EventCompleted
	if res.Pending > 0 {
		res.Outcome = models.EventPartial
	}
	p.finish(ctx, eventID, res.Outcome)
	return res, nil
}

func (p *Processor) finish(ctx context.Context, eventID string, outcome models.EventOutcome) {
	if err := p.Ledger.FinishEvent(ctx, eventID, outcome); err != nil {
		log.Printf("event %s: finish (%s) failed: %v", eventID, outcome, err)
	}
}
