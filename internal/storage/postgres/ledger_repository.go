package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seatgrid/reservation/internal/domain"
)

// LedgerRepository persists units and holds. Unit status changes go
// through UpdateUnitStatus, which compares the caller's version and
// fails with domain.ErrVersionConflict when another writer got there
// first.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *LedgerRepository) GetUnit(ctx context.Context, unitID string) (domain.Unit, error) {
	const query = `
SELECT id, event_id, status, version, price_cents, created_at
FROM units
WHERE id = $1`

	var u domain.Unit
	err := r.queryRow(ctx, query, unitID).
		Scan(&u.ID, &u.EventID, &u.Status, &u.Version, &u.PriceCents, &u.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Unit{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Unit{}, domain.ErrUnitNotFound
		}
		return domain.Unit{}, fmt.Errorf("get unit: %w", err)
	}
	return u, nil
}

func (r *LedgerRepository) UpdateUnitStatus(ctx context.Context, unitID string, version int64, status domain.UnitStatus) error {
	const stmt = `
UPDATE units
SET status = $3, version = version + 1
WHERE id = $1 AND version = $2`

	tag, err := r.exec(ctx, stmt, unitID, version, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update unit status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Zero rows means either the row is gone or someone bumped the
		// version under us. Tell them apart so callers can retry only
		// on conflict.
		var exists bool
		if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM units WHERE id = $1)`, unitID).Scan(&exists); err != nil {
			return fmt.Errorf("update unit status: %w", err)
		}
		if !exists {
			return domain.ErrUnitNotFound
		}
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *LedgerRepository) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	const query = `
SELECT id, unit_id, event_id, holder_id, created_at, expires_at
FROM holds
WHERE id = $1`

	var h domain.Hold
	err := r.queryRow(ctx, query, holdID).
		Scan(&h.ID, &h.UnitID, &h.EventID, &h.HolderID, &h.CreatedAt, &h.ExpiresAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

func (r *LedgerRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, unit_id, event_id, holder_id, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt,
		hold.ID,
		hold.UnitID,
		hold.EventID,
		hold.HolderID,
		hold.CreatedAt,
		hold.ExpiresAt,
	)
	if err != nil {
		// holds.unit_id is unique: a second hold on the same unit loses
		// here even if it slipped past the status gate.
		if isUniqueViolation(err) {
			return domain.ErrUnitNotAvailable
		}
		if isForeignKeyViolation(err) {
			return domain.ErrUnitNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *LedgerRepository) DeleteHold(ctx context.Context, holdID string) error {
	tag, err := r.exec(ctx, `DELETE FROM holds WHERE id = $1`, holdID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (r *LedgerRepository) ListExpiredHolds(ctx context.Context, before time.Time) ([]domain.Hold, error) {
	const query = `
SELECT id, unit_id, event_id, holder_id, created_at, expires_at
FROM holds
WHERE expires_at <= $1
ORDER BY expires_at`

	rows, err := r.query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	var holds []domain.Hold
	for rows.Next() {
		var h domain.Hold
		if err := rows.Scan(&h.ID, &h.UnitID, &h.EventID, &h.HolderID, &h.CreatedAt, &h.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan expired hold: %w", err)
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	return holds, nil
}

func (r *LedgerRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *LedgerRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *LedgerRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
