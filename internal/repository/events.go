package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Fundandi1/memorybear/internal/checkout"
)

func (r *Repository) RecordPaymentEvent(ctx context.Context, event checkout.PaymentEvent) error {
	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte("null")
	}

	query := `INSERT INTO payment_events (reference, event_type, amount, payload, created_at)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		event.Reference,
		event.EventType,
		event.Amount,
		[]byte(payload),
		event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment event: %w", err)
	}
	return nil
}

// RecordCaptureFailure persists the failed capture attempt and stages a
// payment.capture.failed outbox event in the same transaction. The record is
// the only trace of the discrepancy; it must not be lost.
func (r *Repository) RecordCaptureFailure(ctx context.Context, failure checkout.CaptureFailure) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO capture_failures (reference, amount, reason, created_at)
	          VALUES ($1, $2, $3, $4)`

	if _, err := tx.ExecContext(ctx, query, failure.Reference, failure.Amount, failure.Reason, failure.CreatedAt); err != nil {
		return fmt.Errorf("insert capture failure: %w", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"reference": failure.Reference,
		"amount":    failure.Amount,
		"reason":    failure.Reason,
	})
	if err != nil {
		return fmt.Errorf("marshal capture failure payload: %w", err)
	}

	if err := insertOutboxEvent(ctx, tx, failure.Reference, "payment.capture.failed", payload); err != nil {
		return err
	}

	return tx.Commit()
}

// ListCaptureFailures returns recorded failures for operator tooling, newest
// first.
func (r *Repository) ListCaptureFailures(ctx context.Context, limit int) ([]checkout.CaptureFailure, error) {
	query := `SELECT reference, amount, reason, created_at
	          FROM capture_failures ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query capture failures: %w", err)
	}
	defer rows.Close()

	var failures []checkout.CaptureFailure
	for rows.Next() {
		var f checkout.CaptureFailure
		if err := rows.Scan(&f.Reference, &f.Amount, &f.Reason, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan capture failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
