package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatgrid/reservation/internal/cache"
	"github.com/seatgrid/reservation/internal/domain"
)

type AvailabilityRepository interface {
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	CountUnitsByStatus(ctx context.Context, eventID string) (available, held, sold int, err error)
}

// AvailabilityService serves the per-event availability view through the
// cache. A miss (or an unreadable cache) falls back to the ledger and
// repopulates; the invalidation listener keeps entries from going stale for
// longer than one status change.
type AvailabilityService struct {
	repo  AvailabilityRepository
	store cache.Store
	log   zerolog.Logger
	ttl   time.Duration
}

const defaultViewTTL = time.Minute

func NewAvailabilityService(repo AvailabilityRepository, store cache.Store, log zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{
		repo:  repo,
		store: store,
		log:   log,
		ttl:   defaultViewTTL,
	}
}

func (s *AvailabilityService) Availability(ctx context.Context, eventID string) (cache.Availability, error) {
	if eventID == "" {
		return cache.Availability{}, domain.ErrInvalidID
	}

	view, err := s.store.Get(ctx, eventID)
	if err == nil {
		return view, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn().Err(err).Str("event_id", eventID).Msg("availability cache read failed")
	}

	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return cache.Availability{}, err
	}
	available, held, sold, err := s.repo.CountUnitsByStatus(ctx, eventID)
	if err != nil {
		return cache.Availability{}, err
	}

	view = cache.Availability{
		EventID:   eventID,
		Available: available,
		Held:      held,
		Sold:      sold,
	}
	if err := s.store.Set(ctx, view, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("event_id", eventID).Msg("availability cache write failed")
	}
	return view, nil
}
