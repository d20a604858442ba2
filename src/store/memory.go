package store

import (
	"context"
	"fmt"
	"sync"

	"operator-dashboard/src/contracts"
)

// MemoryStore is an in-memory implementation of Store.
// Useful for testing and for serving a dashboard loaded once.
type MemoryStore struct {
	mu    sync.RWMutex
	data  contracts.Dashboard
	saves int
}

// NewMemoryStore creates a store holding a copy of initial. A nil initial
// dashboard makes Load return ErrNotFound until the first Save.
func NewMemoryStore(initial contracts.Dashboard) *MemoryStore {
	return &MemoryStore{data: Clone(initial)}
}

// Load returns a copy of the stored dashboard.
func (s *MemoryStore) Load(ctx context.Context) (contracts.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return nil, fmt.Errorf("memory store: %w", ErrNotFound)
	}
	return Clone(s.data), nil
}

// Save replaces the stored dashboard with a copy of d.
func (s *MemoryStore) Save(ctx context.Context, d contracts.Dashboard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d == nil {
		d = contracts.Dashboard{}
	}
	s.data = Clone(d)
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Close closes the store (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
