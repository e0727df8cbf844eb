package app

import (
	"context"
	"time"

	"github.com/seatgrid/reservation/internal/clock"
	"github.com/seatgrid/reservation/internal/domain"
)

type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUnit(ctx context.Context, unitID string) (domain.Unit, error)
	// UpdateUnitStatus is the conditional write every mutator goes through:
	// it applies the new status and bumps the version only when the stored
	// version still matches, failing with domain.ErrVersionConflict otherwise.
	UpdateUnitStatus(ctx context.Context, unitID string, version int64, status domain.UnitStatus) error
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
	CreateHold(ctx context.Context, hold domain.Hold) error
	DeleteHold(ctx context.Context, holdID string) error
}

type HoldService struct {
	repo    HoldRepository
	clock   clock.Clock
	events  EventPublisher
	holdTTL time.Duration
}

const defaultHoldTTL = 15 * time.Minute

func NewHoldService(repo HoldRepository, clk clock.Clock, events EventPublisher, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		repo:    repo,
		clock:   clk,
		events:  events,
		holdTTL: defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

type CreateHoldInput struct {
	UnitID   string
	HolderID string
}

// CreateHold claims an available unit for the holder. Exactly one caller
// wins a race on the same unit: the status gate rejects everyone who reads
// a non-available unit, and the version check rejects a caller whose read
// went stale between read and write. Losers get a conflict error and must
// pick a different unit; the service never retries on their behalf.
func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Hold, error) {
	if in.UnitID == "" {
		return domain.Hold{}, domain.ErrInvalidID
	}
	if in.HolderID == "" {
		return domain.Hold{}, domain.ErrHolderRequired
	}

	now := s.clock.Now()
	var (
		result domain.Hold
		change domain.StatusChanged
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		unit, err := s.repo.GetUnit(txCtx, in.UnitID)
		if err != nil {
			return err
		}
		if !unit.Status.CanTransition(domain.UnitStatusHeld) {
			return domain.ErrUnitNotAvailable
		}

		if err := s.repo.UpdateUnitStatus(txCtx, unit.ID, unit.Version, domain.UnitStatusHeld); err != nil {
			return err
		}

		hold := domain.Hold{
			ID:        newID(),
			UnitID:    unit.ID,
			EventID:   unit.EventID,
			HolderID:  in.HolderID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.holdTTL),
		}
		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			return err
		}

		result = hold
		change = domain.StatusChanged{
			UnitID:     unit.ID,
			EventID:    unit.EventID,
			OldStatus:  domain.UnitStatusAvailable,
			NewStatus:  domain.UnitStatusHeld,
			HolderID:   in.HolderID,
			Reason:     domain.ReasonHoldCreated,
			OccurredAt: now,
		}
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}

	s.events.Publish(change)
	return result, nil
}

type CancelHoldInput struct {
	HoldID   string
	HolderID string
}

// CancelHold releases a hold back to the pool. HolderID is optional; when
// set it must match the hold's owner. An empty HolderID is a system-initiated
// cancellation and skips the ownership check.
func (s *HoldService) CancelHold(ctx context.Context, in CancelHoldInput) error {
	if in.HoldID == "" {
		return domain.ErrInvalidID
	}

	now := s.clock.Now()
	var (
		change  domain.StatusChanged
		publish bool
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHold(txCtx, in.HoldID)
		if err != nil {
			return err
		}
		if in.HolderID != "" && hold.HolderID != in.HolderID {
			return domain.ErrNotHolder
		}

		// A hold past its TTL is already dead even if the sweeper has not
		// reached it yet; releasing it here is the reclaim arriving early,
		// not a cancellation.
		reason := domain.ReasonHoldCancelled
		holderID := in.HolderID
		if hold.Expired(now) {
			reason = domain.ReasonHoldExpired
			holderID = ""
		}

		unit, err := s.repo.GetUnit(txCtx, hold.UnitID)
		if err != nil {
			return err
		}
		if unit.Status.CanTransition(domain.UnitStatusAvailable) {
			if err := s.repo.UpdateUnitStatus(txCtx, unit.ID, unit.Version, domain.UnitStatusAvailable); err != nil {
				return err
			}
			publish = true
			change = domain.StatusChanged{
				UnitID:     unit.ID,
				EventID:    unit.EventID,
				OldStatus:  domain.UnitStatusHeld,
				NewStatus:  domain.UnitStatusAvailable,
				HolderID:   holderID,
				Reason:     reason,
				OccurredAt: now,
			}
		}

		return s.repo.DeleteHold(txCtx, hold.ID)
	})
	if err != nil {
		return err
	}

	if publish {
		s.events.Publish(change)
	}
	return nil
}
