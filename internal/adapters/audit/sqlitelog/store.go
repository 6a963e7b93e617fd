// Package sqlitelog persists audit events to SQLite so the request/response
// trail survives restarts. It is the default publisher when an audit database
// path is configured.
package sqlitelog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mocksmith/mocksmith/internal/core/domain"
	"github.com/mocksmith/mocksmith/internal/core/ports"
)

// Store writes audit events to a SQLite database.
type Store struct {
	db *sqlx.DB
}

// New opens (or creates) the audit database at path.
func New(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure audit database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize audit schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS request_logs (
id TEXT PRIMARY KEY,
method TEXT NOT NULL,
path TEXT NOT NULL,
operation_id TEXT,
timestamp TIMESTAMP NOT NULL,
headers TEXT,
query TEXT,
body TEXT
)`,
		`CREATE TABLE IF NOT EXISTS response_logs (
id TEXT PRIMARY KEY,
request_id TEXT NOT NULL,
status INTEGER NOT NULL,
duration_ms INTEGER NOT NULL,
headers TEXT,
body TEXT,
simulated INTEGER NOT NULL DEFAULT 0,
created_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_response_logs_request ON response_logs(request_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// PublishRequest appends a request audit row.
func (s *Store) PublishRequest(ctx context.Context, entry *domain.RequestLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO request_logs (id, method, path, operation_id, timestamp, headers, query, body)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Method, entry.Path, entry.OperationID, entry.Timestamp,
		marshal(entry.Headers), marshal(entry.Query), marshal(entry.Body))
	if err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

// PublishResponse appends a response audit row.
func (s *Store) PublishResponse(ctx context.Context, entry *domain.ResponseLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO response_logs (id, request_id, status, duration_ms, headers, body, simulated, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RequestID, entry.Status, entry.Duration.Milliseconds(),
		marshal(entry.Headers), marshal(entry.Body), entry.Simulated, time.Now())
	if err != nil {
		return fmt.Errorf("insert response log: %w", err)
	}
	return nil
}

// CountRequests returns the number of stored request events.
func (s *Store) CountRequests(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM request_logs`); err != nil {
		return 0, fmt.Errorf("count request logs: %w", err)
	}
	return count, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func marshal(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

var _ ports.EventPublisher = (*Store)(nil)
