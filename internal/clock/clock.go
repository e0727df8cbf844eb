package clock

import (
	"sync"
	"time"
)

// Clock allows injecting time into services; expiry and gateway delay
// decisions must never read time.Now directly.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always returns the same instant (useful for tests).
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// Stepping is a mutable test clock. It starts at a given instant and moves
// only when told to, so TTL and sweep-window behavior can be tested without
// sleeping.
type Stepping struct {
	mu  sync.Mutex
	now time.Time
}

func NewStepping(start time.Time) *Stepping {
	return &Stepping{now: start.UTC()}
}

func (s *Stepping) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the clock forward by d.
func (s *Stepping) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}
