// Package breaker wraps a domain.RemoteStore in a circuit breaker so an
// unreachable backend fails fast instead of stalling every upload.
package breaker

import (
	"budgetcore/pkg/domain"
	"context"
	"time"

	"github.com/sony/gobreaker"
)

var _ domain.RemoteStore = (*Store)(nil)

// Settings configures the breaker. Zero values select the defaults.
type Settings struct {
	Name string
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a trial request.
	Timeout       time.Duration
	OnStateChange func(name string, from, to gobreaker.State)
}

const (
	defaultName        = "remote-store"
	defaultMaxFailures = 3
	defaultTimeout     = 5 * time.Second
)

// Store forwards to an inner RemoteStore through a gobreaker.CircuitBreaker.
type Store struct {
	inner domain.RemoteStore
	cb    *gobreaker.CircuitBreaker
}

// New wraps inner.
func New(inner domain.RemoteStore, s Settings) *Store {
	if s.Name == "" {
		s.Name = defaultName
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = defaultMaxFailures
	}
	if s.Timeout <= 0 {
		s.Timeout = defaultTimeout
	}
	maxFailures := s.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: s.OnStateChange,
	})
	return &Store{inner: inner, cb: cb}
}

type fetchResult struct {
	doc   domain.RemoteDocument
	found bool
}

// Fetch reads through the breaker. When the circuit is open it returns
// gobreaker.ErrOpenState without calling the backend.
func (s *Store) Fetch(ctx context.Context, userID string) (domain.RemoteDocument, bool, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		doc, found, err := s.inner.Fetch(ctx, userID)
		return fetchResult{doc: doc, found: found}, err
	})
	if err != nil {
		return domain.RemoteDocument{}, false, err
	}
	res := out.(fetchResult)
	return res.doc, res.found, nil
}

// Upsert writes through the breaker.
func (s *Store) Upsert(ctx context.Context, userID string, doc domain.RemoteDocument) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.inner.Upsert(ctx, userID, doc)
	})
	return err
}

// State reports the breaker state.
func (s *Store) State() gobreaker.State { return s.cb.State() }
