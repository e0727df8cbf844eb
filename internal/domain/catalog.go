package domain

import "time"

// Event is the parent collection a unit belongs to. Its id keys the cached
// availability view.
type Event struct {
	ID        string
	Name      string
	StartsAt  time.Time
	CreatedAt time.Time
}
