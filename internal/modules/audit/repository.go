// Package audit persists the append-only audit trail of manager
// events. Records are never updated or deleted; the backing database
// uses the ledger profile (full fsync, no vacuum).
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/events"
)

// Record is one persisted audit event
type Record struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Repository handles audit trail database operations.
// Database: audit.db (audit_events table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new audit repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "audit").Logger(),
	}
}

// InitSchema creates the audit_events table if it does not exist
func (r *Repository) InitSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			payload TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_events_type ON audit_events(event_type);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

// Append persists one event. Append-only: there is no update or delete.
func (r *Repository) Append(event *events.Event) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	_, err = r.db.Exec(
		"INSERT INTO audit_events (id, event_type, timestamp, payload) VALUES (?, ?, ?, ?)",
		event.ID, string(event.Type), event.Timestamp.UnixNano(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first
func (r *Repository) Recent(limit int) ([]Record, error) {
	return r.query(
		"SELECT id, event_type, timestamp, payload FROM audit_events ORDER BY timestamp DESC LIMIT ?",
		limit,
	)
}

// ByType returns up to limit records of one event type, newest first
func (r *Repository) ByType(eventType events.EventType, limit int) ([]Record, error) {
	return r.query(
		"SELECT id, event_type, timestamp, payload FROM audit_events WHERE event_type = ? ORDER BY timestamp DESC LIMIT ?",
		string(eventType), limit,
	)
}

// Count returns the total number of audit records
func (r *Repository) Count() (int64, error) {
	var count int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM audit_events").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return count, nil
}

func (r *Repository) query(q string, args ...any) ([]Record, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ts int64
		var payload string
		if err := rows.Scan(&rec.ID, &rec.Type, &ts, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		rec.Timestamp = time.Unix(0, ts).UTC()
		rec.Payload = json.RawMessage(payload)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return records, nil
}
