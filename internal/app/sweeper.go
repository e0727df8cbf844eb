package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatgrid/reservation/internal/clock"
	"github.com/seatgrid/reservation/internal/domain"
)

type SweeperRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListExpiredHolds(ctx context.Context, before time.Time) ([]domain.Hold, error)
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
	GetUnit(ctx context.Context, unitID string) (domain.Unit, error)
	UpdateUnitStatus(ctx context.Context, unitID string, version int64, status domain.UnitStatus) error
	DeleteHold(ctx context.Context, holdID string) error
}

// Sweeper reclaims expired holds. It is the liveness mechanism of the
// ledger: without it an abandoned hold would keep a unit out of the pool
// forever. Until a sweep runs, an expired hold can still look active to
// readers for at most one sweep interval; the cancel and payment paths
// re-check expiry themselves, so the staleness is visible only to raw reads.
type Sweeper struct {
	repo     SweeperRepository
	clock    clock.Clock
	events   EventPublisher
	log      zerolog.Logger
	interval time.Duration
}

const defaultSweepInterval = 2 * time.Minute

func NewSweeper(repo SweeperRepository, clk clock.Clock, events EventPublisher, log zerolog.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repo:     repo,
		clock:    clk,
		events:   events,
		log:      log,
		interval: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SweeperOption func(*Sweeper)

// WithSweepInterval overrides how often Run sweeps.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sweeper stopping")
			return nil
		case <-t.C:
			cleaned, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("sweep failed")
				continue
			}
			if cleaned > 0 {
				s.log.Info().Int("cleaned", cleaned).Msg("reclaimed expired holds")
			}
		}
	}
}

// Sweep reclaims every hold whose TTL elapsed before now. Each hold is
// processed in its own transaction; one bad record is logged and skipped,
// never aborting the batch. The returned count is observability only.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	expired, err := s.repo.ListExpiredHolds(ctx, now)
	if err != nil {
		return 0, err
	}

	cleaned := 0
	for _, hold := range expired {
		reclaimed, change, err := s.reap(ctx, hold.ID, now)
		if err != nil {
			s.log.Warn().
				Err(err).
				Str("hold_id", hold.ID).
				Str("unit_id", hold.UnitID).
				Msg("failed to reclaim expired hold")
			continue
		}
		if !reclaimed {
			continue
		}
		cleaned++
		if change != nil {
			s.events.Publish(*change)
		}
	}
	return cleaned, nil
}

func (s *Sweeper) reap(ctx context.Context, holdID string, now time.Time) (bool, *domain.StatusChanged, error) {
	var (
		reclaimed bool
		change    *domain.StatusChanged
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHold(txCtx, holdID)
		if err != nil {
			// Consumed or cancelled between the scan and now.
			if errors.Is(err, domain.ErrHoldNotFound) {
				return nil
			}
			return err
		}
		if !hold.Expired(now) {
			return nil
		}

		unit, err := s.repo.GetUnit(txCtx, hold.UnitID)
		if err != nil {
			return err
		}
		if unit.Status.CanTransition(domain.UnitStatusAvailable) {
			if err := s.repo.UpdateUnitStatus(txCtx, unit.ID, unit.Version, domain.UnitStatusAvailable); err != nil {
				return err
			}
			change = &domain.StatusChanged{
				UnitID:     unit.ID,
				EventID:    unit.EventID,
				OldStatus:  domain.UnitStatusHeld,
				NewStatus:  domain.UnitStatusAvailable,
				Reason:     domain.ReasonHoldExpired,
				OccurredAt: now,
			}
		}

		if err := s.repo.DeleteHold(txCtx, hold.ID); err != nil {
			return err
		}
		reclaimed = true
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return reclaimed, change, nil
}
