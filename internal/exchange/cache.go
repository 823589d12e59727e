// Package exchange fetches and caches currency conversion rates.
package exchange

import (
	"context"
	"sync"
	"time"
)

// Rates is one base currency's conversion table.
type Rates struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Cache stores rate tables per base currency with a freshness bound.
type Cache interface {
	Get(ctx context.Context, base string) (*Rates, bool, error)
	Set(ctx context.Context, base string, rates *Rates, ttl time.Duration) error
}

type memoryEntry struct {
	rates   *Rates
	expires time.Time
}

// Memory is the in-process cache used when redis is not configured.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(_ context.Context, base string) (*Rates, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[base]
	if !ok || time.Now().After(e.expires) {
		delete(m.entries, base)
		return nil, false, nil
	}
	return e.rates, true, nil
}

func (m *Memory) Set(_ context.Context, base string, rates *Rates, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[base] = memoryEntry{rates: rates, expires: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}
