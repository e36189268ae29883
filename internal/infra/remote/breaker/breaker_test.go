package breaker

import (
	"budgetcore/internal/infra/remote/memory"
	"budgetcore/pkg/domain"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestBreakerPassesThrough(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	store := New(inner, Settings{})
	if err := store.Upsert(ctx, "u", domain.RemoteDocument{Data: domain.DefaultSnapshot()}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	doc, found, err := store.Fetch(ctx, "u")
	if err != nil || !found || len(doc.Data.Agencies) != 1 {
		t.Fatalf("unexpected fetch doc=%+v found=%v err=%v", doc, found, err)
	}
	if _, found, err := store.Fetch(ctx, "other"); err != nil || found {
		t.Fatalf("missing document must not count as failure: found=%v err=%v", found, err)
	}
	if store.State() != gobreaker.StateClosed {
		t.Fatalf("expected closed breaker, got %s", store.State())
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("unreachable")
	inner := memory.New()
	inner.FailUpsert = boom
	var transitions []string
	store := New(inner, Settings{
		MaxFailures: 2,
		Timeout:     time.Hour,
		OnStateChange: func(_ string, from, to gobreaker.State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	for i := 0; i < 2; i++ {
		if err := store.Upsert(ctx, "u", domain.RemoteDocument{}); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: expected backend error, got %v", i, err)
		}
	}
	if store.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", store.State())
	}
	inner.FailUpsert = nil
	if err := store.Upsert(ctx, "u", domain.RemoteDocument{}); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if inner.Upserts() != 0 {
		t.Fatalf("open breaker must not reach the backend")
	}
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Fatalf("unexpected transitions %v", transitions)
	}
}
