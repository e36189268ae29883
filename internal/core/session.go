package core

import (
	"fmt"
	"strconv"
	"sync"

	"budgetcore/pkg/domain"
)

// AppSession is the authorization state machine. It starts from the role
// and demo flags cached locally and changes only through its transition
// methods, each of which persists the flags back to the cache.
//
// Precedence when an auth callback arrives: demo mode, then the backend
// session, then the cached local role. While demo mode is on callbacks are
// ignored. A session promotes to admin. Losing the session demotes a
// backend admin to guest and leaves a passcode reader as it is.
type AppSession struct {
	mu      sync.RWMutex
	cache   domain.LocalCache
	role    domain.Role
	demo    bool
	backend bool
	session *domain.Session
}

// NewAppSession restores the cached role and demo flag.
func NewAppSession(cache domain.LocalCache) (*AppSession, error) {
	s := &AppSession{cache: cache, role: domain.RoleGuest}
	raw, ok, err := cache.Get(domain.KeyUserRole)
	if err != nil {
		return nil, fmt.Errorf("read cached role: %w", err)
	}
	if ok {
		s.role = domain.ParseRole(raw)
	}
	raw, ok, err = cache.Get(domain.KeyDemoMode)
	if err != nil {
		return nil, fmt.Errorf("read demo flag: %w", err)
	}
	if ok {
		s.demo, _ = strconv.ParseBool(raw)
	}
	if s.demo {
		s.role = domain.RoleAdmin
	}
	s.backend = s.role == domain.RoleAdmin && !s.demo
	return s, nil
}

// Role returns the current role.
func (s *AppSession) Role() domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Demo reports whether demo mode is on.
func (s *AppSession) Demo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.demo
}

// Session returns a copy of the backend session, or nil.
func (s *AppSession) Session() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

// EnterReader grants read-only access after a passcode match and drops any
// backend session.
func (s *AppSession) EnterReader() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = domain.RoleReader
	s.demo = false
	s.backend = false
	s.session = nil
	return s.persistLocked()
}

// EnterAdmin grants admin access from an explicit backend sign-in. An
// explicit sign-in leaves demo mode.
func (s *AppSession) EnterAdmin(sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = domain.RoleAdmin
	s.demo = false
	s.backend = true
	s.session = &sess
	return s.persistLocked()
}

// EnterDemo grants admin access without a backend.
func (s *AppSession) EnterDemo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = domain.RoleAdmin
	s.demo = true
	s.backend = false
	s.session = nil
	return s.persistLocked()
}

// HandleAuthChange applies an asynchronous session notification and reports
// whether the state changed.
func (s *AppSession) HandleAuthChange(sess *domain.Session) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.demo {
		return false, nil
	}
	if sess != nil {
		cp := *sess
		changed := s.role != domain.RoleAdmin || s.session == nil || s.session.UserID != cp.UserID
		s.role = domain.RoleAdmin
		s.backend = true
		s.session = &cp
		if !changed {
			return false, nil
		}
		return true, s.persistLocked()
	}
	hadSession := s.session != nil
	s.session = nil
	if s.role == domain.RoleAdmin && s.backend {
		s.role = domain.RoleGuest
		s.backend = false
		return true, s.persistLocked()
	}
	return hadSession, nil
}

// Reset returns to guest and clears the cached flags.
func (s *AppSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = domain.RoleGuest
	s.demo = false
	s.backend = false
	s.session = nil
	if err := s.cache.Remove(domain.KeyUserRole); err != nil {
		return fmt.Errorf("clear cached role: %w", err)
	}
	if err := s.cache.Remove(domain.KeyDemoMode); err != nil {
		return fmt.Errorf("clear demo flag: %w", err)
	}
	return nil
}

func (s *AppSession) persistLocked() error {
	if err := s.cache.Set(domain.KeyUserRole, string(s.role)); err != nil {
		return fmt.Errorf("persist role: %w", err)
	}
	if err := s.cache.Set(domain.KeyDemoMode, strconv.FormatBool(s.demo)); err != nil {
		return fmt.Errorf("persist demo flag: %w", err)
	}
	return nil
}
