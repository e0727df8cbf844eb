package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seatgrid/reservation/internal/domain"
)

// PaymentRepository adds payment attempt persistence on top of the
// ledger. It embeds LedgerRepository so payment settlement can touch
// units and holds inside the same transaction.
type PaymentRepository struct {
	*LedgerRepository
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{LedgerRepository: NewLedgerRepository(pool)}
}

func (r *PaymentRepository) CreatePaymentAttempt(ctx context.Context, attempt domain.PaymentAttempt) error {
	const stmt = `
INSERT INTO payment_attempts
	(id, hold_id, unit_id, event_id, holder_id, external_tx_id, outcome, failure_reason, amount_cents, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.exec(ctx, stmt,
		attempt.ID,
		attempt.HoldID,
		attempt.UnitID,
		attempt.EventID,
		attempt.HolderID,
		attempt.ExternalTxID,
		attempt.Outcome,
		attempt.FailureReason,
		attempt.AmountCents,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create payment attempt: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetPaymentAttempt(ctx context.Context, attemptID string) (domain.PaymentAttempt, error) {
	const query = `
SELECT id, hold_id, unit_id, event_id, holder_id, external_tx_id, outcome, failure_reason, amount_cents, created_at, updated_at
FROM payment_attempts
WHERE id = $1`

	var a domain.PaymentAttempt
	err := r.queryRow(ctx, query, attemptID).Scan(
		&a.ID,
		&a.HoldID,
		&a.UnitID,
		&a.EventID,
		&a.HolderID,
		&a.ExternalTxID,
		&a.Outcome,
		&a.FailureReason,
		&a.AmountCents,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.PaymentAttempt{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.PaymentAttempt{}, domain.ErrAttemptNotFound
		}
		return domain.PaymentAttempt{}, fmt.Errorf("get payment attempt: %w", err)
	}
	return a, nil
}

func (r *PaymentRepository) SetAttemptTransaction(ctx context.Context, attemptID, externalTxID string) error {
	tag, err := r.exec(ctx,
		`UPDATE payment_attempts SET external_tx_id = $2 WHERE id = $1`,
		attemptID, externalTxID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set attempt transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

// SettleAttempt records the terminal outcome. The pending guard makes
// settlement first-writer-wins: a duplicate completion sees zero rows
// and gets domain.ErrAttemptSettled.
func (r *PaymentRepository) SettleAttempt(ctx context.Context, attempt domain.PaymentAttempt) error {
	const stmt = `
UPDATE payment_attempts
SET outcome = $2, failure_reason = $3, updated_at = $4
WHERE id = $1 AND outcome = 'pending'`

	tag, err := r.exec(ctx, stmt, attempt.ID, attempt.Outcome, attempt.FailureReason, attempt.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("settle attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payment_attempts WHERE id = $1)`, attempt.ID).Scan(&exists); err != nil {
			return fmt.Errorf("settle attempt: %w", err)
		}
		if !exists {
			return domain.ErrAttemptNotFound
		}
		return domain.ErrAttemptSettled
	}
	return nil
}
