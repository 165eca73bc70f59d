package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // sqlite driver (pure Go)

	"github.com/gyaneshwarpardhi/auditflow/internal/event"
)

type sqliteFactory struct{}

func (*sqliteFactory) Type() string { return "sqlite" }

func (*sqliteFactory) Validate(params map[string]interface{}) error {
	if p, _ := params["path"].(string); p == "" {
		return fmt.Errorf("sqlite sink: 'path' param is required")
	}
	return nil
}

func (*sqliteFactory) New(params map[string]interface{}) (Sink, error) {
	path, _ := params["path"].(string)
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	s := &sqliteSink{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

// sqliteSink persists records into a local table with a dedupe key of
// (input, event id), so a crash inside the duplicate-delivery risk window
// cannot produce a second row.
type sqliteSink struct {
	db *sql.DB
}

func (s *sqliteSink) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			dedupe_key TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			event_id TEXT NOT NULL,
			event_time TIMESTAMP NOT NULL,
			record TEXT NOT NULL,
			ingested_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_input ON audit_events(input, event_time DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply sink schema: %w", err)
		}
	}
	return nil
}

func (s *sqliteSink) Emit(rec event.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	input, _ := rec["input"].(string)
	id, _ := rec["id"].(string)
	ts, _ := rec["timestamp"].(time.Time)

	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO audit_events (dedupe_key, input, event_id, event_time, record)
		 VALUES (?, ?, ?, ?, ?)`,
		input+":"+id, input, id, ts, string(data),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *sqliteSink) Close() error { return s.db.Close() }
