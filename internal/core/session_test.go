package core

import (
	"testing"

	cachememory "budgetcore/internal/infra/cache/memory"
	"budgetcore/pkg/domain"
)

func newTestSession(t *testing.T, cache domain.LocalCache) *AppSession {
	t.Helper()
	s, err := NewAppSession(cache)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func TestAppSessionRestoresCachedFlags(t *testing.T) {
	cache := cachememory.New()
	if s := newTestSession(t, cache); s.Role() != domain.RoleGuest || s.Demo() {
		t.Fatalf("expected guest start")
	}
	if err := newTestSession(t, cache).EnterReader(); err != nil {
		t.Fatalf("enter reader: %v", err)
	}
	if got := newTestSession(t, cache).Role(); got != domain.RoleReader {
		t.Fatalf("expected restored reader, got %s", got)
	}
	if err := newTestSession(t, cache).EnterDemo(); err != nil {
		t.Fatalf("enter demo: %v", err)
	}
	restored := newTestSession(t, cache)
	if restored.Role() != domain.RoleAdmin || !restored.Demo() {
		t.Fatalf("expected restored demo admin")
	}
	if v, _, _ := cache.Get(domain.KeyDemoMode); v != "true" {
		t.Fatalf("demo flag not persisted: %q", v)
	}
}

func TestDemoTakesPrecedenceOverAuthCallbacks(t *testing.T) {
	s := newTestSession(t, cachememory.New())
	if err := s.EnterDemo(); err != nil {
		t.Fatalf("enter demo: %v", err)
	}
	changed, err := s.HandleAuthChange(&domain.Session{UserID: "u1"})
	if err != nil || changed {
		t.Fatalf("demo must ignore callbacks, changed=%v err=%v", changed, err)
	}
	if s.Session() != nil || !s.Demo() {
		t.Fatalf("session adopted during demo")
	}
	if changed, _ := s.HandleAuthChange(nil); changed || s.Role() != domain.RoleAdmin {
		t.Fatalf("demo admin demoted by nil callback")
	}
}

func TestAuthCallbackPromotesAndDemotes(t *testing.T) {
	s := newTestSession(t, cachememory.New())
	changed, err := s.HandleAuthChange(&domain.Session{UserID: "u1"})
	if err != nil || !changed || s.Role() != domain.RoleAdmin {
		t.Fatalf("expected promotion, changed=%v err=%v role=%s", changed, err, s.Role())
	}
	if changed, _ := s.HandleAuthChange(&domain.Session{UserID: "u1"}); changed {
		t.Fatalf("repeated session should not report change")
	}
	if changed, _ := s.HandleAuthChange(nil); !changed || s.Role() != domain.RoleGuest {
		t.Fatalf("expected demotion to guest, role=%s", s.Role())
	}
}

func TestNilCallbackLeavesReader(t *testing.T) {
	s := newTestSession(t, cachememory.New())
	if err := s.EnterReader(); err != nil {
		t.Fatalf("enter reader: %v", err)
	}
	if changed, _ := s.HandleAuthChange(nil); changed || s.Role() != domain.RoleReader {
		t.Fatalf("reader must survive nil callback, role=%s", s.Role())
	}
}

func TestEnterReaderDropsBackendSession(t *testing.T) {
	s := newTestSession(t, cachememory.New())
	if err := s.EnterAdmin(domain.Session{UserID: "u1"}); err != nil {
		t.Fatalf("enter admin: %v", err)
	}
	if err := s.EnterReader(); err != nil {
		t.Fatalf("enter reader: %v", err)
	}
	if s.Role() != domain.RoleReader || s.Session() != nil {
		t.Fatalf("reader kept backend session: role=%s", s.Role())
	}
}

func TestExplicitSignInLeavesDemo(t *testing.T) {
	s := newTestSession(t, cachememory.New())
	_ = s.EnterDemo()
	if err := s.EnterAdmin(domain.Session{UserID: "u2"}); err != nil {
		t.Fatalf("enter admin: %v", err)
	}
	if s.Demo() || s.Session() == nil || s.Session().UserID != "u2" {
		t.Fatalf("expected backend admin, demo=%v", s.Demo())
	}
}

func TestResetClearsFlags(t *testing.T) {
	cache := cachememory.New()
	s := newTestSession(t, cache)
	_ = s.EnterDemo()
	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Role() != domain.RoleGuest || s.Demo() {
		t.Fatalf("expected guest after reset")
	}
	for _, key := range []string{domain.KeyUserRole, domain.KeyDemoMode} {
		if _, ok, _ := cache.Get(key); ok {
			t.Fatalf("%s still cached", key)
		}
	}
}
