package memory

import (
	"budgetcore/pkg/domain"
	"context"
	"errors"
	"testing"
	"time"
)

func TestUpsertReplacesWholeDocument(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, found, err := s.Fetch(ctx, "u1"); found || err != nil {
		t.Fatalf("expected empty store, found=%v err=%v", found, err)
	}
	first := domain.RemoteDocument{Data: domain.DefaultSnapshot(), UpdatedAt: time.Unix(1, 0)}
	if err := s.Upsert(ctx, "u1", first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second := domain.RemoteDocument{Data: domain.Snapshot{Agencies: []domain.Agency{{ID: "x"}}, CurrentAgencyID: "x"}, UpdatedAt: time.Unix(2, 0)}
	if err := s.Upsert(ctx, "u1", second); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, found, err := s.Fetch(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("fetch: found=%v err=%v", found, err)
	}
	if len(got.Data.Agencies) != 1 || got.Data.Agencies[0].ID != "x" || !got.UpdatedAt.Equal(time.Unix(2, 0)) {
		t.Fatalf("expected second document, got %+v", got)
	}
	if s.Upserts() != 2 {
		t.Fatalf("expected 2 upserts, got %d", s.Upserts())
	}
	if _, found, _ := s.Fetch(ctx, "u2"); found {
		t.Fatalf("documents must be keyed per user")
	}
}

func TestFailureInjection(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("offline")
	s := New()
	s.FailFetch = boom
	s.FailUpsert = boom
	if _, _, err := s.Fetch(ctx, "u"); !errors.Is(err, boom) {
		t.Fatalf("expected fetch failure, got %v", err)
	}
	if err := s.Upsert(ctx, "u", domain.RemoteDocument{}); !errors.Is(err, boom) {
		t.Fatalf("expected upsert failure, got %v", err)
	}
	if s.Upserts() != 0 {
		t.Fatalf("failed upsert must not be applied")
	}
}
