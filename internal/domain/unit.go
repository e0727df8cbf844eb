package domain

import "time"

type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "available"
	UnitStatusHeld      UnitStatus = "held"
	UnitStatusSold      UnitStatus = "sold"
)

// Unit is a single reservable item in the ledger. Its status field is the
// mutual-exclusion gate for holds, and Version backs the conditional update
// every mutator must go through.
type Unit struct {
	ID         string
	EventID    string
	Status     UnitStatus
	Version    int64
	PriceCents int64
	CreatedAt  time.Time
}

// CanTransition reports whether moving from s to next is a legal status
// change. Sold is terminal; available and held cycle.
func (s UnitStatus) CanTransition(next UnitStatus) bool {
	switch s {
	case UnitStatusAvailable:
		return next == UnitStatusHeld
	case UnitStatusHeld:
		return next == UnitStatusAvailable || next == UnitStatusSold
	default:
		return false
	}
}
