package gateway

import "context"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// Response is the gateway's answer to a submission. TransactionID is always
// set. Status is terminal for synchronous submissions; asynchronous
// submissions return StatusPending and must be polled via CheckStatus.
type Response struct {
	TransactionID string
	Status        Status
	FailureReason string
}

// Gateway is the external payment processor as seen by the core. The real
// adapter is out of scope; Simulator is the only implementation here.
type Gateway interface {
	// Submit sends a payment for processing and blocks for the gateway's
	// processing delay, returning a terminal status.
	Submit(ctx context.Context, attemptID string, amountCents int64) (Response, error)

	// SubmitAsync registers a payment and returns immediately with a pending
	// transaction; the outcome becomes visible through CheckStatus after the
	// gateway's processing delay has elapsed.
	SubmitAsync(ctx context.Context, attemptID string, amountCents int64) (Response, error)

	// CheckStatus reports the current state of a transaction. It is
	// idempotent; unknown ids fail with domain.ErrGatewayTxNotFound.
	CheckStatus(ctx context.Context, transactionID string) (Response, error)
}
