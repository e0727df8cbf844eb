package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seatgrid/reservation/internal/clock"
	"github.com/seatgrid/reservation/internal/domain"
)

const declineReason = "card declined by issuer"

// Simulator mimics an external payment gateway: it decides outcomes from a
// seedable random source and models processing latency. Transaction state is
// owned by the instance, so tests can build a fresh one per case.
type Simulator struct {
	log         zerolog.Logger
	clk         clock.Clock
	successRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	testMode    bool

	mu   sync.Mutex
	rng  *rand.Rand
	txns map[string]*transaction
}

type transaction struct {
	attemptID     string
	submittedAt   time.Time
	completesAt   time.Time
	finalStatus   Status
	failureReason string
}

type SimulatorOption func(*Simulator)

// WithSuccessRate sets the probability of a successful outcome in [0, 1].
func WithSuccessRate(rate float64) SimulatorOption {
	return func(s *Simulator) {
		if rate >= 0 && rate <= 1 {
			s.successRate = rate
		}
	}
}

// WithDelayBounds sets the simulated processing delay window.
func WithDelayBounds(min, max time.Duration) SimulatorOption {
	return func(s *Simulator) {
		if min >= 0 && max >= min {
			s.minDelay = min
			s.maxDelay = max
		}
	}
}

// WithSeed makes outcome decisions deterministic.
func WithSeed(seed int64) SimulatorOption {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithTestMode forces every submission to succeed with zero delay.
func WithTestMode(enabled bool) SimulatorOption {
	return func(s *Simulator) {
		s.testMode = enabled
	}
}

func NewSimulator(log zerolog.Logger, clk clock.Clock, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		log:         log,
		clk:         clk,
		successRate: 0.9,
		minDelay:    time.Second,
		maxDelay:    3 * time.Second,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		txns:        make(map[string]*transaction),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) Submit(ctx context.Context, attemptID string, amountCents int64) (Response, error) {
	txID := uuid.NewString()
	status, reason := s.decide()

	if !s.testMode {
		delay := s.pickDelay()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}

	now := s.clk.Now()
	s.mu.Lock()
	s.txns[txID] = &transaction{
		attemptID:     attemptID,
		submittedAt:   now,
		completesAt:   now,
		finalStatus:   status,
		failureReason: reason,
	}
	s.mu.Unlock()

	s.log.Debug().
		Str("transaction_id", txID).
		Str("attempt_id", attemptID).
		Int64("amount_cents", amountCents).
		Str("status", string(status)).
		Msg("gateway processed payment")

	return Response{TransactionID: txID, Status: status, FailureReason: reason}, nil
}

func (s *Simulator) SubmitAsync(ctx context.Context, attemptID string, amountCents int64) (Response, error) {
	txID := uuid.NewString()
	status, reason := s.decide()

	now := s.clk.Now()
	completesAt := now
	if !s.testMode {
		// Async settlement takes longer than the blocking path.
		completesAt = now.Add(s.pickDelay() + 2*time.Second)
	}

	s.mu.Lock()
	s.txns[txID] = &transaction{
		attemptID:     attemptID,
		submittedAt:   now,
		completesAt:   completesAt,
		finalStatus:   status,
		failureReason: reason,
	}
	s.mu.Unlock()

	s.log.Debug().
		Str("transaction_id", txID).
		Str("attempt_id", attemptID).
		Int64("amount_cents", amountCents).
		Time("completes_at", completesAt).
		Msg("gateway accepted payment for async processing")

	return Response{TransactionID: txID, Status: StatusPending}, nil
}

func (s *Simulator) CheckStatus(_ context.Context, transactionID string) (Response, error) {
	s.mu.Lock()
	txn, ok := s.txns[transactionID]
	s.mu.Unlock()
	if !ok {
		return Response{}, fmt.Errorf("check status %s: %w", transactionID, domain.ErrGatewayTxNotFound)
	}

	now := s.clk.Now()
	if now.Before(txn.completesAt) {
		status := StatusPending
		// Halfway through the settlement window the gateway reports the
		// transaction as in flight.
		if now.Sub(txn.submittedAt) >= txn.completesAt.Sub(txn.submittedAt)/2 {
			status = StatusProcessing
		}
		return Response{TransactionID: transactionID, Status: status}, nil
	}

	return Response{
		TransactionID: transactionID,
		Status:        txn.finalStatus,
		FailureReason: txn.failureReason,
	}, nil
}

func (s *Simulator) decide() (Status, string) {
	if s.testMode {
		return StatusSuccess, ""
	}
	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()
	if roll < s.successRate {
		return StatusSuccess, ""
	}
	return StatusFailed, declineReason
}

func (s *Simulator) pickDelay() time.Duration {
	if s.maxDelay <= s.minDelay {
		return s.minDelay
	}
	s.mu.Lock()
	jitter := time.Duration(s.rng.Int63n(int64(s.maxDelay - s.minDelay)))
	s.mu.Unlock()
	return s.minDelay + jitter
}
