package domain

import "time"

type PaymentOutcome string

const (
	PaymentOutcomePending PaymentOutcome = "pending"
	PaymentOutcomeSuccess PaymentOutcome = "success"
	PaymentOutcomeFailed  PaymentOutcome = "failed"
)

// Terminal reports whether the outcome can no longer change.
func (o PaymentOutcome) Terminal() bool {
	return o == PaymentOutcomeSuccess || o == PaymentOutcomeFailed
}

// PaymentAttempt tracks one submission of a hold to the payment gateway.
// ExternalTxID is empty until the gateway has accepted the submission;
// FailureReason is set only for failed attempts.
type PaymentAttempt struct {
	ID            string
	HoldID        string
	UnitID        string
	EventID       string
	HolderID      string
	ExternalTxID  string
	Outcome       PaymentOutcome
	FailureReason string
	AmountCents   int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
