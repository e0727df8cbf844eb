package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatgrid/reservation/internal/domain"
)

const evictTimeout = 2 * time.Second

// Invalidator is the bus subscriber that evicts the availability view for
// the event a status change belongs to. Eviction failures are logged and
// swallowed; the cache self-heals on the next read-through.
type Invalidator struct {
	store Store
	log   zerolog.Logger
}

func NewInvalidator(store Store, log zerolog.Logger) *Invalidator {
	return &Invalidator{store: store, log: log}
}

func (i *Invalidator) Name() string { return "cache-invalidator" }

func (i *Invalidator) Handle(event domain.StatusChanged) error {
	ctx, cancel := context.WithTimeout(context.Background(), evictTimeout)
	defer cancel()

	if err := i.store.Invalidate(ctx, event.EventID); err != nil {
		i.log.Warn().
			Err(err).
			Str("event_id", event.EventID).
			Str("unit_id", event.UnitID).
			Msg("availability eviction failed")
		return err
	}
	return nil
}
