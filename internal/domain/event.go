package domain

import "time"

type ChangeReason string

const (
	ReasonHoldCreated       ChangeReason = "hold_created"
	ReasonHoldCancelled     ChangeReason = "hold_cancelled"
	ReasonHoldExpired       ChangeReason = "hold_expired"
	ReasonPurchaseCompleted ChangeReason = "purchase_completed"
)

// StatusChanged is the domain event emitted once per accepted unit status
// transition. It is transient: published on the in-process bus, never stored.
// HolderID is empty for system-initiated transitions such as expiry.
type StatusChanged struct {
	UnitID     string       `json:"unit_id"`
	EventID    string       `json:"event_id"`
	OldStatus  UnitStatus   `json:"old_status"`
	NewStatus  UnitStatus   `json:"new_status"`
	HolderID   string       `json:"holder_id,omitempty"`
	Reason     ChangeReason `json:"reason"`
	OccurredAt time.Time    `json:"occurred_at"`
}
