// Package bus is the in-process domain event bus. Publish hands each event to
// every subscriber on its own goroutine and returns immediately; a panicking
// or failing subscriber is logged and contained, never surfaced to the
// publisher. Delivery is best effort: events exist only in memory and are
// lost if the process dies between commit and dispatch.
package bus

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/seatgrid/reservation/internal/domain"
)

// Subscriber handles one StatusChanged event. Errors are logged and dropped.
type Subscriber interface {
	Name() string
	Handle(event domain.StatusChanged) error
}

type Bus struct {
	log zerolog.Logger

	mu   sync.RWMutex
	subs []Subscriber

	inflight sync.WaitGroup
}

func New(log zerolog.Logger) *Bus {
	return &Bus{log: log}
}

// Subscribe registers a subscriber for all future events.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, s)
}

// Publish dispatches the event to every subscriber asynchronously and
// returns without waiting for any of them.
func (b *Bus) Publish(event domain.StatusChanged) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.inflight.Add(1)
		go b.dispatch(s, event)
	}
}

func (b *Bus) dispatch(s Subscriber, event domain.StatusChanged) {
	defer b.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("subscriber", s.Name()).
				Interface("panic", r).
				Str("unit_id", event.UnitID).
				Msg("subscriber panicked")
		}
	}()

	if err := s.Handle(event); err != nil {
		b.log.Warn().
			Err(err).
			Str("subscriber", s.Name()).
			Str("unit_id", event.UnitID).
			Str("reason", string(event.Reason)).
			Msg("subscriber failed")
	}
}

// Drain blocks until all in-flight dispatches have finished. Used on
// shutdown and by tests that need deterministic delivery.
func (b *Bus) Drain() {
	b.inflight.Wait()
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc struct {
	SubscriberName string
	Fn             func(event domain.StatusChanged) error
}

func (s SubscriberFunc) Name() string { return s.SubscriberName }

func (s SubscriberFunc) Handle(event domain.StatusChanged) error { return s.Fn(event) }
