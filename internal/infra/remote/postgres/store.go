// Package postgres provides the Postgres-backed remote document store: one
// JSONB row per authenticated user in the user_data table.
package postgres

import (
	"budgetcore/pkg/domain"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.RemoteStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/budgetcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store reads and upserts user documents.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at dsn (falls back to defaultDSN), checks
// connectivity and ensures the user_data table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS user_data (
		user_id TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure user_data table: %w", err)
	}
	return nil
}

// Fetch reads the user's document. A missing row is reported as found=false.
func (s *Store) Fetch(ctx context.Context, userID string) (domain.RemoteDocument, bool, error) {
	var (
		payload   []byte
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `SELECT data, updated_at FROM user_data WHERE user_id = $1`, userID).Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RemoteDocument{}, false, nil
	}
	if err != nil {
		return domain.RemoteDocument{}, false, fmt.Errorf("select user_data: %w", err)
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return domain.RemoteDocument{}, false, fmt.Errorf("decode user_data: %w", err)
	}
	return domain.RemoteDocument{Data: snapshot, UpdatedAt: updatedAt}, true, nil
}

// Upsert inserts or replaces the user's document.
func (s *Store) Upsert(ctx context.Context, userID string, doc domain.RemoteDocument) error {
	payload, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("encode user_data: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO user_data(user_id,data,updated_at) VALUES($1,$2,$3) ON CONFLICT(user_id) DO UPDATE SET data=EXCLUDED.data, updated_at=EXCLUDED.updated_at`,
		userID, payload, doc.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("upsert user_data: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
