package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"AwabarTickets/internal/models"
)

type fakeTaskStore struct {
	due     []*models.Disbursement
	claimed int

	sent    map[string]string
	retried map[string]time.Time
	failed  map[string]string
}

func newFakeTaskStore(due ...*models.Disbursement) *fakeTaskStore {
	return &fakeTaskStore{
		due:     due,
		sent:    map[string]string{},
		retried: map[string]time.Time{},
		failed:  map[string]string{},
	}
}

func (s *fakeTaskStore) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Disbursement, error) {
	s.claimed++
	if len(s.due) > limit {
		return s.due[:limit], nil
	}
	return s.due, nil
}

func (s *fakeTaskStore) MarkSent(ctx context.Context, id string, transactionID string) error {
	s.sent[id] = transactionID
	return nil
}

func (s *fakeTaskStore) MarkRetry(ctx context.Context, id string, nextAttempt time.Time, lastErr string) error {
	s.retried[id] = nextAttempt
	return nil
}

func (s *fakeTaskStore) MarkFailed(ctx context.Context, id string, lastErr string) error {
	s.failed[id] = lastErr
	return nil
}

type scriptedWallet struct {
	errs  map[string]error
	calls int
}

func (w *scriptedWallet) Transfer(ctx context.Context, token, recipient string, amount int64) (string, error) {
	w.calls++
	if err, ok := w.errs[recipient]; ok {
		return "", err
	}
	return "tx-ok", nil
}

func task(id string, attempts int) *models.Disbursement {
	return &models.Disbursement{
		ID:               id,
		OrderID:          "O1",
		RecipientAddress: "0x" + id,
		TokenAddress:     "0xToken",
		Amount:           1,
		Attempts:         attempts,
	}
}

func newWorker(store *fakeTaskStore, wallet *scriptedWallet) *Worker {
	return &Worker{
		Store:       store,
		Wallet:      wallet,
		Interval:    20 * time.Second,
		Backoff:     30 * time.Second,
		MaxAttempts: 3,
		BatchSize:   10,
	}
}

func TestDispatchOnceSends(t *testing.T) {
	store := newFakeTaskStore(task("d1", 0), task("d2", 1))
	wallet := &scriptedWallet{}
	w := newWorker(store, wallet)

	if err := w.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if wallet.calls != 2 {
		t.Fatalf("expected 2 transfers, got %d", wallet.calls)
	}
	if store.sent["d1"] != "tx-ok" || store.sent["d2"] != "tx-ok" {
		t.Fatalf("tasks not marked sent: %+v", store.sent)
	}
	if len(store.retried) != 0 || len(store.failed) != 0 {
		t.Fatalf("unexpected retries/failures: %+v %+v", store.retried, store.failed)
	}
}

func TestDispatchOnceRetriesWithBackoff(t *testing.T) {
	store := newFakeTaskStore(task("d1", 0))
	wallet := &scriptedWallet{errs: map[string]error{"0xd1": errors.New("wallet down")}}
	w := newWorker(store, wallet)

	before := time.Now().UTC()
	if err := w.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	next, ok := store.retried["d1"]
	if !ok {
		t.Fatalf("task not marked for retry: %+v", store.retried)
	}
	// First failure schedules one backoff unit out.
	if next.Before(before.Add(w.Backoff)) || next.After(time.Now().UTC().Add(2*w.Backoff)) {
		t.Fatalf("unexpected next attempt %s", next)
	}
	if len(store.sent) != 0 || len(store.failed) != 0 {
		t.Fatalf("unexpected sent/failed: %+v %+v", store.sent, store.failed)
	}
}

func TestDispatchOnceFailsAtAttemptCap(t *testing.T) {
	store := newFakeTaskStore(task("d1", 2))
	wallet := &scriptedWallet{errs: map[string]error{"0xd1": errors.New("wallet down")}}
	w := newWorker(store, wallet)

	if err := w.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if store.failed["d1"] == "" {
		t.Fatalf("expected permanent failure, got %+v %+v", store.retried, store.failed)
	}
	if len(store.retried) != 0 {
		t.Fatalf("failed task must not be rescheduled: %+v", store.retried)
	}
}

func TestDispatchOnceIsolatesFailures(t *testing.T) {
	store := newFakeTaskStore(task("bad", 0), task("good", 0))
	wallet := &scriptedWallet{errs: map[string]error{"0xbad": errors.New("wallet down")}}
	w := newWorker(store, wallet)

	if err := w.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if store.sent["good"] != "tx-ok" {
		t.Fatal("healthy task blocked by failing one")
	}
	if _, ok := store.retried["bad"]; !ok {
		t.Fatal("failing task not rescheduled")
	}
}

func TestDispatchOnceEmptyQueue(t *testing.T) {
	store := newFakeTaskStore()
	wallet := &scriptedWallet{}
	w := newWorker(store, wallet)

	if err := w.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if wallet.calls != 0 {
		t.Fatalf("expected no transfers, got %d", wallet.calls)
	}
}
