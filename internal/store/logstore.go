package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LogStore persists internal error detail that must never reach the user
// (policy violations, backend failures). Bounded by entry count and age.
type LogStore struct {
	db         *DB
	mu         sync.Mutex
	maxEntries int
	maxAgeDays int
}

// NewLogStore creates a log store with default retention limits.
func NewLogStore(db *DB) *LogStore {
	return &LogStore{db: db, maxEntries: 10000, maxAgeDays: 7}
}

// LogEntry is one persisted log record.
type LogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

// Log writes an entry. Best effort; callers ignore the error on hot paths.
func (s *LogStore) Log(ctx context.Context, level, component, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO system_logs (level, component, message) VALUES (?, ?, ?)`,
		level, component, message,
	)
	return err
}

// LogError records an error-level entry.
func (s *LogStore) LogError(ctx context.Context, component, message string) error {
	return s.Log(ctx, "error", component, message)
}

// LogWarn records a warn-level entry.
func (s *LogStore) LogWarn(ctx context.Context, component, message string) error {
	return s.Log(ctx, "warn", component, message)
}

// Recent returns the latest entries, newest first.
func (s *LogStore) Recent(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, level, component, message FROM system_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Level, &e.Component, &e.Message); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Cleanup drops entries beyond the retention limits.
func (s *LogStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM system_logs WHERE timestamp < datetime('now', ?)`,
		fmt.Sprintf("-%d days", s.maxAgeDays),
	); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM system_logs WHERE id NOT IN (SELECT id FROM system_logs ORDER BY id DESC LIMIT ?)`,
		s.maxEntries,
	)
	return err
}
