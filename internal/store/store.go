package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"AwabarTickets/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// BeginEvent claims a webhook event for processing. The first delivery of an
// event id wins; redeliveries return false unless the prior attempt ended in
// lookup_failed, which is the one retryable outcome.
func (s *Store) BeginEvent(ctx context.Context, ev *models.WebhookEvent) (bool, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO webhook_events (
			event_id, event_type, payment_id, order_id, payment_status, outcome
		) VALUES ($1,$2,$3,$4,$5,'processing')
		ON CONFLICT (event_id) DO UPDATE
		SET outcome='processing', updated_at=now()
		WHERE webhook_events.outcome='lookup_failed'
		RETURNING event_id
	`,
		ev.EventID,
		ev.EventType,
		ev.PaymentID,
		ev.OrderID,
		ev.PaymentStatus,
	)

	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) FinishEvent(ctx context.Context, eventID string, outcome models.EventOutcome) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE webhook_events
		SET outcome=$2, updated_at=now()
		WHERE event_id=$1
	`, eventID, outcome)
	return err
}

func (s *Store) GetEvent(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT event_id, event_type, payment_id, order_id, payment_status,
			outcome, received_at, updated_at
		FROM webhook_events WHERE event_id=$1
	`, eventID)

	var ev models.WebhookEvent
	err := row.Scan(
		&ev.EventID,
		&ev.EventType,
		&ev.PaymentID,
		&ev.OrderID,
		&ev.PaymentStatus,
		&ev.Outcome,
		&ev.ReceivedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *Store) CreateDisbursement(ctx context.Context, d *models.Disbursement) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO disbursements (
			id, event_id, order_id, line_item, token_address,
			recipient_address, amount, status, attempts, next_attempt_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		d.ID,
		d.EventID,
		d.OrderID,
		d.LineItem,
		d.TokenAddress,
		d.RecipientAddress,
		d.Amount,
		d.Status,
		d.Attempts,
		d.NextAttemptAt,
	)
	return err
}

// ClaimDue leases pending disbursements whose next attempt is due. The claim
// pushes next_attempt_at forward so concurrent claimers cannot pick up the
// same row while an attempt is in flight.
func (s *Store) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Disbursement, error) {
	rows, err := s.Pool.Query(ctx, `
		UPDATE disbursements
		SET next_attempt_at=$2, updated_at=now()
		WHERE id IN (
			SELECT id FROM disbursements
			WHERE status='pending' AND next_attempt_at <= $1
			ORDER BY next_attempt_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_id, order_id, line_item, token_address,
			recipient_address, amount, status, attempts, next_attempt_at,
			transaction_id, last_error, created_at, updated_at
	`, now, now.Add(lease), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDisbursements(rows)
}

func (s *Store) ListByOrder(ctx context.Context, orderID string) ([]*models.Disbursement, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, event_id, order_id, line_item, token_address,
			recipient_address, amount, status, attempts, next_attempt_at,
			transaction_id, last_error, created_at, updated_at
		FROM disbursements
		WHERE order_id=$1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDisbursements(rows)
}

func (s *Store) MarkSent(ctx context.Context, id string, transactionID string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE disbursements
		SET status='sent', transaction_id=$2, attempts=attempts+1,
			last_error=NULL, updated_at=now()
		WHERE id=$1 AND status='pending'
	`, id, transactionID)
	return err
}

func (s *Store) MarkRetry(ctx context.Context, id string, nextAttempt time.Time, lastErr string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE disbursements
		SET attempts=attempts+1, next_attempt_at=$2, last_error=$3, updated_at=now()
		WHERE id=$1 AND status='pending'
	`, id, nextAttempt, lastErr)
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, lastErr string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE disbursements
		SET status='failed', attempts=attempts+1, last_error=$2, updated_at=now()
		WHERE id=$1 AND status='pending'
	`, id, lastErr)
	return err
}

func scanDisbursements(rows pgx.Rows) ([]*models.Disbursement, error) {
	var out []*models.Disbursement
	for rows.Next() {
		var d models.Disbursement
		var transactionID sql.NullString
		var lastError sql.NullString
		if err := rows.Scan(
			&d.ID,
			&d.EventID,
			&d.OrderID,
			&d.LineItem,
			&d.TokenAddress,
			&d.RecipientAddress,
			&d.Amount,
			&d.Status,
			&d.Attempts,
			&d.NextAttemptAt,
			&transactionID,
			&lastError,
			&d.CreatedAt,
			&d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if transactionID.Valid {
			d.TransactionID = &transactionID.String
		}
		if lastError.Valid {
			d.LastError = &lastError.String
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
