package app

import (
	"context"
	"sync"
	"time"

	"github.com/seatgrid/reservation/internal/domain"
)

// fakeLedger is an in-memory ledger implementing the repository interfaces
// of every service in this package. Each method is atomic under the mutex,
// so the read-then-conditionally-write contract is exercised exactly as it
// is against Postgres: a stale version loses.
type fakeLedger struct {
	mu       sync.Mutex
	units    map[string]domain.Unit
	holds    map[string]domain.Hold
	attempts map[string]domain.PaymentAttempt

	// unitErr injects a per-unit read failure, for failure-isolation tests.
	unitErr map[string]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		units:    make(map[string]domain.Unit),
		holds:    make(map[string]domain.Hold),
		attempts: make(map[string]domain.PaymentAttempt),
		unitErr:  make(map[string]error),
	}
}

func (f *fakeLedger) addUnit(unit domain.Unit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if unit.Version == 0 {
		unit.Version = 1
	}
	if unit.Status == "" {
		unit.Status = domain.UnitStatusAvailable
	}
	f.units[unit.ID] = unit
}

func (f *fakeLedger) addHold(hold domain.Hold) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holds[hold.ID] = hold
}

func (f *fakeLedger) unit(id string) domain.Unit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.units[id]
}

func (f *fakeLedger) holdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.holds)
}

func (f *fakeLedger) unitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.units)
}

func (f *fakeLedger) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeLedger) GetUnit(_ context.Context, unitID string) (domain.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.unitErr[unitID]; err != nil {
		return domain.Unit{}, err
	}
	unit, ok := f.units[unitID]
	if !ok {
		return domain.Unit{}, domain.ErrUnitNotFound
	}
	return unit, nil
}

func (f *fakeLedger) UpdateUnitStatus(_ context.Context, unitID string, version int64, status domain.UnitStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	unit, ok := f.units[unitID]
	if !ok {
		return domain.ErrUnitNotFound
	}
	if unit.Version != version {
		return domain.ErrVersionConflict
	}
	unit.Status = status
	unit.Version++
	f.units[unitID] = unit
	return nil
}

func (f *fakeLedger) GetHold(_ context.Context, holdID string) (domain.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hold, ok := f.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return hold, nil
}

func (f *fakeLedger) CreateHold(_ context.Context, hold domain.Hold) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.holds {
		if existing.UnitID == hold.UnitID {
			return domain.ErrUnitNotAvailable
		}
	}
	f.holds[hold.ID] = hold
	return nil
}

func (f *fakeLedger) DeleteHold(_ context.Context, holdID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.holds[holdID]; !ok {
		return domain.ErrHoldNotFound
	}
	delete(f.holds, holdID)
	return nil
}

func (f *fakeLedger) ListExpiredHolds(_ context.Context, before time.Time) ([]domain.Hold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Hold
	for _, hold := range f.holds {
		if hold.Expired(before) {
			out = append(out, hold)
		}
	}
	return out, nil
}

func (f *fakeLedger) CreatePaymentAttempt(_ context.Context, attempt domain.PaymentAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[attempt.ID] = attempt
	return nil
}

func (f *fakeLedger) GetPaymentAttempt(_ context.Context, attemptID string) (domain.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[attemptID]
	if !ok {
		return domain.PaymentAttempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func (f *fakeLedger) SetAttemptTransaction(_ context.Context, attemptID, externalTxID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	attempt.ExternalTxID = externalTxID
	f.attempts[attemptID] = attempt
	return nil
}

func (f *fakeLedger) SettleAttempt(_ context.Context, attempt domain.PaymentAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.attempts[attempt.ID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if existing.Outcome.Terminal() {
		return domain.ErrAttemptSettled
	}
	f.attempts[attempt.ID] = attempt
	return nil
}

// capturePublisher records published events for assertion.
type capturePublisher struct {
	mu     sync.Mutex
	events []domain.StatusChanged
}

func (c *capturePublisher) Publish(event domain.StatusChanged) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturePublisher) all() []domain.StatusChanged {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.StatusChanged, len(c.events))
	copy(out, c.events)
	return out
}

func (c *capturePublisher) byReason(reason domain.ChangeReason) []domain.StatusChanged {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.StatusChanged
	for _, e := range c.events {
		if e.Reason == reason {
			out = append(out, e)
		}
	}
	return out
}
