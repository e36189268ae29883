// Package memory implements an in-process domain.LocalCache for tests and
// ephemeral runs.
package memory

import (
	"budgetcore/pkg/domain"
	"sort"
	"sync"
)

var _ domain.LocalCache = (*Store)(nil)

// Store keeps cache entries in a map guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	entries map[string]string
}

// New returns an empty in-memory cache.
func New() *Store { return &Store{entries: make(map[string]string)} }

// Get returns the value stored at key.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

// Set stores value at key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
	return nil
}

// Remove deletes key. Missing keys are ignored.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Keys returns the stored keys in ascending order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
