package app

import "github.com/seatgrid/reservation/internal/domain"

// EventPublisher hands status-change events to the in-process bus. Services
// publish only after their transaction has committed, so subscribers never
// observe a change that was rolled back.
type EventPublisher interface {
	Publish(event domain.StatusChanged)
}

// NopPublisher drops all events; used where no bus is wired.
type NopPublisher struct{}

func (NopPublisher) Publish(domain.StatusChanged) {}
