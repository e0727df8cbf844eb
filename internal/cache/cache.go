// Package cache holds the availability view cache and the bus subscriber
// that keeps it consistent. The cache is read-through: a miss is not an
// error, callers fall back to the ledger and repopulate.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMiss is returned by Get when no view is cached for the event.
var ErrMiss = errors.New("cache miss")

// Availability is the cached per-event view: unit counts by status.
type Availability struct {
	EventID   string `json:"event_id"`
	Available int    `json:"available"`
	Held      int    `json:"held"`
	Sold      int    `json:"sold"`
}

// Store caches availability views keyed by event id.
type Store interface {
	Get(ctx context.Context, eventID string) (Availability, error)
	Set(ctx context.Context, view Availability, ttl time.Duration) error
	Invalidate(ctx context.Context, eventID string) error
}

// Memory is a process-local Store for tests and single-node deployments.
type Memory struct {
	mu    sync.RWMutex
	views map[string]memoryEntry
}

type memoryEntry struct {
	view      Availability
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{views: make(map[string]memoryEntry)}
}

func (m *Memory) Get(_ context.Context, eventID string) (Availability, error) {
	m.mu.RLock()
	entry, ok := m.views[eventID]
	m.mu.RUnlock()
	if !ok {
		return Availability{}, ErrMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.views, eventID)
		m.mu.Unlock()
		return Availability{}, ErrMiss
	}
	return entry.view, nil
}

func (m *Memory) Set(_ context.Context, view Availability, ttl time.Duration) error {
	entry := memoryEntry{view: view}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.views[view.EventID] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Invalidate(_ context.Context, eventID string) error {
	m.mu.Lock()
	delete(m.views, eventID)
	m.mu.Unlock()
	return nil
}
