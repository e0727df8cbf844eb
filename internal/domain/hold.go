package domain

import "time"

// Hold is a temporary exclusive claim on a unit. At most one hold exists per
// unit; the unit's status acts as the gate, backed by a unique index on
// holds.unit_id. A hold past ExpiresAt is eligible for reclamation by the
// sweeper but is also treated as expired by the cancel and payment paths.
type Hold struct {
	ID        string
	UnitID    string
	EventID   string
	HolderID  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the hold's TTL has elapsed at the given instant.
func (h Hold) Expired(now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
