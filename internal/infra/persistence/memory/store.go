// Package memory implements an in-process snapshot store for tests and
// ephemeral runs.
package memory

import (
	"context"
	"sync"

	"reactivegraph/internal/infra/persistence"
)

// Store keeps the encoded bucket payloads in memory, so a loaded snapshot
// never aliases the saved one.
type Store struct {
	mu      sync.RWMutex
	buckets map[string][]byte
	saves   int
}

var _ persistence.Store = (*Store)(nil)

// New returns an empty memory store.
func New() *Store { return &Store{} }

// Save replaces the stored snapshot.
func (s *Store) Save(_ context.Context, snapshot persistence.Snapshot) error {
	buckets, err := persistence.EncodeBuckets(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = buckets
	s.saves++
	return nil
}

// Load decodes the stored snapshot.
func (s *Store) Load(_ context.Context) (persistence.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return persistence.DecodeBuckets(s.buckets)
}

// Saves returns the number of successful saves.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Driver implements persistence.Store.
func (s *Store) Driver() persistence.Driver { return persistence.DriverMemory }

// Close implements persistence.Store.
func (s *Store) Close() error { return nil }
