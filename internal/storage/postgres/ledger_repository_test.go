package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/seatgrid/reservation/internal/domain"
	"github.com/seatgrid/reservation/internal/testutil"
)

func TestLedgerRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewLedgerRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("GetUnit returns unit and ErrUnitNotFound", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID, unitIDs := testutil.InsertEventWithUnits(t, ctx, pool, "Concert", 1, 5000)

		u, err := repo.GetUnit(ctx, unitIDs[0])
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if u.ID != unitIDs[0] || u.EventID != eventID || u.Status != domain.UnitStatusAvailable || u.Version != 1 || u.PriceCents != 5000 {
			t.Fatalf("unexpected unit: %+v", u)
		}

		_, err = repo.GetUnit(ctx, uuid.NewString())
		if !errors.Is(err, domain.ErrUnitNotFound) {
			t.Fatalf("expected ErrUnitNotFound, got %v", err)
		}

		_, err = repo.GetUnit(ctx, "not-a-uuid")
		if !errors.Is(err, domain.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("UpdateUnitStatus bumps version on match", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		_, unitIDs := testutil.InsertEventWithUnits(t, ctx, pool, "Concert", 1, 5000)

		if err := repo.UpdateUnitStatus(ctx, unitIDs[0], 1, domain.UnitStatusHeld); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		u, err := repo.GetUnit(ctx, unitIDs[0])
		if err != nil {
			t.Fatalf("get unit: %v", err)
		}
		if u.Status != domain.UnitStatusHeld || u.Version != 2 {
			t.Fatalf("expected held at version 2, got %+v", u)
		}
	})

	t.Run("UpdateUnitStatus with stale version returns ErrVersionConflict", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		_, unitIDs := testutil.InsertEventWithUnits(t, ctx, pool, "Concert", 1, 5000)

		if err := repo.UpdateUnitStatus(ctx, unitIDs[0], 1, domain.UnitStatusHeld); err != nil {
			t.Fatalf("first update: %v", err)
		}
		err := repo.UpdateUnitStatus(ctx, unitIDs[0], 1, domain.UnitStatusSold)
		if !errors.Is(err, domain.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}

		err = repo.UpdateUnitStatus(ctx, uuid.NewString(), 1, domain.UnitStatusHeld)
		if !errors.Is(err, domain.ErrUnitNotFound) {
			t.Fatalf("expected ErrUnitNotFound, got %v", err)
		}
	})

	t.Run("CreateHold enforces one hold per unit", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID, unitIDs := testutil.InsertEventWithUnits(t, ctx, pool, "Concert", 1, 5000)
		now := time.Now().UTC()

		hold := domain.Hold{
			ID:        uuid.NewString(),
			UnitID:    unitIDs[0],
			EventID:   eventID,
			HolderID:  "buyer-1",
			CreatedAt: now,
			ExpiresAt: now.Add(15 * time.Minute),
		}
		if err := repo.CreateHold(ctx, hold); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		dup := hold
		dup.ID = uuid.NewString()
		dup.HolderID = "buyer-2"
		err := repo.CreateHold(ctx, dup)
		if !errors.Is(err, domain.ErrUnitNotAvailable) {
			t.Fatalf("expected ErrUnitNotAvailable, got %v", err)
		}

		orphan := hold
		orphan.ID = uuid.NewString()
		orphan.UnitID = uuid.NewString()
		err = repo.CreateHold(ctx, orphan)
		if !errors.Is(err, domain.ErrUnitNotFound) {
			t.Fatalf("expected ErrUnitNotFound, got %v", err)
		}
	})

	t.Run("GetHold and DeleteHold round-trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID, unitIDs := testutil.InsertEventWithUnits(t, ctx, pool, "Concert", 1, 5000)
		now := time.Now().UTC()

		holdID := testutil.InsertHold(t, ctx, pool, domain.Hold{
			UnitID:    unitIDs[0],
			EventID:   eventID,
			HolderID:  "buyer-1",
			ExpiresAt: now.Add(15 * time.Minute),
		})

		h, err := repo.GetHold(ctx, holdID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if h.UnitID != unitIDs[0] || h.HolderID != "buyer-1" {
			t.Fatalf("unexpected hold: %+v", h)
		}

		if err := repo.DeleteHold(ctx, holdID); err != nil {
			t.Fatalf("delete hold: %v", err)
		}
		_, err = repo.GetHold(ctx, holdID)
		if !errors.Is(err, domain.ErrHoldNotFound) {
			t.Fatalf("expected ErrHoldNotFound after delete, got %v", err)
		}
		if err := repo.DeleteHold(ctx, holdID); !errors.Is(err, domain.ErrHoldNotFound) {
			t.Fatalf("expected ErrHoldNotFound on second delete, got %v", err)
		}
	})

	t.Run("ListExpiredHolds returns only lapsed holds", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		eventID, unitIDs := testutil.InsertEventWithUnits(t, ctx, pool, "Concert", 2, 5000)
		now := time.Now().UTC()

		expiredID := testutil.InsertHold(t, ctx, pool, domain.Hold{
			UnitID:    unitIDs[0],
			EventID:   eventID,
			HolderID:  "buyer-1",
			ExpiresAt: now.Add(-1 * time.Minute),
		})
		testutil.InsertHold(t, ctx, pool, domain.Hold{
			UnitID:    unitIDs[1],
			EventID:   eventID,
			HolderID:  "buyer-2",
			ExpiresAt: now.Add(10 * time.Minute),
		})

		expired, err := repo.ListExpiredHolds(ctx, now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(expired) != 1 || expired[0].ID != expiredID {
			t.Fatalf("expected only the lapsed hold, got %+v", expired)
		}
	})

	t.Run("WithTx rolls back on error", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		_, unitIDs := testutil.InsertEventWithUnits(t, ctx, pool, "Concert", 1, 5000)

		boom := errors.New("boom")
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := repo.UpdateUnitStatus(txCtx, unitIDs[0], 1, domain.UnitStatusHeld); err != nil {
				t.Fatalf("update inside tx: %v", err)
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}

		u, err := repo.GetUnit(ctx, unitIDs[0])
		if err != nil {
			t.Fatalf("get unit: %v", err)
		}
		if u.Status != domain.UnitStatusAvailable || u.Version != 1 {
			t.Fatalf("expected rollback to available v1, got %+v", u)
		}
	})
}
