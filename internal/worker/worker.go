package worker

import (
	"context"
	"log"
	"time"

	"AwabarTickets/internal/disburse"
	"AwabarTickets/internal/models"
)

type TaskStore interface {
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Disbursement, error)
	MarkSent(ctx context.Context, id string, transactionID string) error
	MarkRetry(ctx context.Context, id string, nextAttempt time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id string, lastErr string) error
}

// Worker drains the disbursement queue: transfers that failed inline during
// webhook handling stay pending and are retried here with linear backoff
// until they send or exhaust their attempts.
type Worker struct {
	Store       TaskStore
	Wallet      disburse.Transferrer
	Interval    time.Duration
	Backoff     time.Duration
	MaxAttempts int
	BatchSize   int
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		if err := w.DispatchOnce(ctx); err != nil {
			log.Printf("dispatch error: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) DispatchOnce(ctx context.Context) error {
	now := time.Now().UTC()
	lease := w.Backoff
	if lease < w.Interval {
		lease = w.Interval
	}

	tasks, err := w.Store.ClaimDue(ctx, now, lease, w.BatchSize)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}
	log.Printf("dispatch tick: %d disbursement(s) due", len(tasks))

	for _, d := range tasks {
		w.attempt(ctx, d)
	}
	return nil
}

func (w *Worker) attempt(ctx context.Context, d *models.Disbursement) {
	attemptCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	txID, err := w.Wallet.Transfer(attemptCtx, d.TokenAddress, d.RecipientAddress, d.Amount)
	if err != nil {
		attempts := d.Attempts + 1
		if attempts >= w.MaxAttempts {
			log.Printf("disbursement %s order=%s failed permanently after %d attempts: %v", d.ID, d.OrderID, attempts, err)
			if markErr := w.Store.MarkFailed(ctx, d.ID, err.Error()); markErr != nil {
				log.Printf("disbursement %s mark failed error: %v", d.ID, markErr)
			}
			return
		}
		next := time.Now().UTC().Add(time.Duration(attempts) * w.Backoff)
		log.Printf("disbursement %s order=%s attempt %d failed, next at %s: %v", d.ID, d.OrderID, attempts, next.Format(time.RFC3339), err)
		if markErr := w.Store.MarkRetry(ctx, d.ID, next, err.Error()); markErr != nil {
			log.Printf("disbursement %s mark retry error: %v", d.ID, markErr)
		}
		return
	}

	log.Printf("disbursement %s order=%s -> sent tx=%s amount=%d", d.ID, d.OrderID, txID, d.Amount)
	if err := w.Store.MarkSent(ctx, d.ID, txID); err != nil {
		log.Printf("disbursement %s mark sent error: %v", d.ID, err)
	}
}
