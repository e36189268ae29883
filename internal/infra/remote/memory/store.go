// Package memory implements an in-process domain.RemoteStore used by tests
// and the "memory" remote driver.
package memory

import (
	"budgetcore/pkg/domain"
	"context"
	"sync"
)

var _ domain.RemoteStore = (*Store)(nil)

// Store holds one document per user id. FailFetch and FailUpsert, when set,
// are returned by the corresponding operation to simulate an unreachable
// backend.
type Store struct {
	mu      sync.Mutex
	docs    map[string]domain.RemoteDocument
	upserts int

	FailFetch  error
	FailUpsert error
	// BeforeUpsert, when set, runs before each upsert is applied. Tests use it
	// to hold uploads in flight.
	BeforeUpsert func(userID string, doc domain.RemoteDocument)
}

// New returns an empty store.
func New() *Store { return &Store{docs: make(map[string]domain.RemoteDocument)} }

// Fetch returns a copy of the user's document.
func (s *Store) Fetch(_ context.Context, userID string) (domain.RemoteDocument, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailFetch != nil {
		return domain.RemoteDocument{}, false, s.FailFetch
	}
	doc, ok := s.docs[userID]
	if !ok {
		return domain.RemoteDocument{}, false, nil
	}
	doc.Data = doc.Data.Clone()
	return doc, true, nil
}

// Upsert replaces the user's document.
func (s *Store) Upsert(_ context.Context, userID string, doc domain.RemoteDocument) error {
	s.mu.Lock()
	hook := s.BeforeUpsert
	fail := s.FailUpsert
	s.mu.Unlock()
	if hook != nil {
		hook(userID, doc)
	}
	if fail != nil {
		return fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.Data = doc.Data.Clone()
	s.docs[userID] = doc
	s.upserts++
	return nil
}

// Put seeds a document directly, bypassing failure injection.
func (s *Store) Put(userID string, doc domain.RemoteDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.Data = doc.Data.Clone()
	s.docs[userID] = doc
}

// Upserts reports how many upserts have been applied.
func (s *Store) Upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}
