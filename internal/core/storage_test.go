package core

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"budgetcore/internal/config"
	"budgetcore/internal/infra/remote/breaker"
	"budgetcore/internal/infra/remote/postgres"
	pgtestutil "budgetcore/internal/infra/remote/postgres/testutil"
	"budgetcore/pkg/domain"
)

func TestOpenLocalCacheMemory(t *testing.T) {
	cache, closeFn, err := OpenLocalCache(config.Config{CacheDriver: config.CacheMemory})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = closeFn() }()
	if err := cache.Set("k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestOpenLocalCacheSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	cache, closeFn, err := OpenLocalCache(config.Config{CacheDriver: config.CacheSQLite, SQLitePath: path})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer func() { _ = closeFn() }()
	svc, err := NewService(cache)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, ok, _ := cache.Get(domain.KeyAgencies); !ok {
		t.Fatalf("sqlite cache not written")
	}
}

func TestOpenLocalCacheUnknown(t *testing.T) {
	if _, _, err := OpenLocalCache(config.Config{CacheDriver: "redis"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenRemoteStoreDrivers(t *testing.T) {
	ctx := context.Background()
	store, closeFn, err := OpenRemoteStore(ctx, config.Config{RemoteDriver: config.RemoteNone}, nil)
	if err != nil || store != nil || closeFn == nil {
		t.Fatalf("none driver: store=%v err=%v", store, err)
	}
	store, _, err = OpenRemoteStore(ctx, config.Config{RemoteDriver: config.RemoteMemory}, nil)
	if err != nil {
		t.Fatalf("memory driver: %v", err)
	}
	if _, ok := store.(*breaker.Store); !ok {
		t.Fatalf("expected breaker wrapper, got %T", store)
	}
	if _, _, err := OpenRemoteStore(ctx, config.Config{RemoteDriver: "ftp"}, nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestOpenRemoteStorePostgres(t *testing.T) {
	db, conn := pgtestutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, closeFn, err := OpenRemoteStore(context.Background(), config.Config{RemoteDriver: config.RemotePostgres}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = closeFn() }()
	doc := domain.RemoteDocument{Data: domain.DefaultSnapshot(), UpdatedAt: time.Unix(100, 0).UTC()}
	if err := store.Upsert(context.Background(), "u1", doc); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if rows := conn.Rows("user_data"); len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
}

func TestRemoteBreakerOpensAndLogs(t *testing.T) {
	log := &captureLogger{}
	db, conn := pgtestutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, _, err := OpenRemoteStore(context.Background(), config.Config{
		RemoteDriver:    config.RemotePostgres,
		BreakerFailures: 1,
		BreakerTimeout:  time.Minute,
	}, log)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	conn.FailExec = true
	if err := store.Upsert(context.Background(), "u1", domain.RemoteDocument{}); err == nil {
		t.Fatalf("expected upsert failure")
	}
	if !log.has("w:remote circuit state changed") {
		t.Fatalf("expected breaker state log, got %v", log.calls)
	}
}
