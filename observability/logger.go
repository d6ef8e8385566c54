// Package observability persists engine operation events to SQLite for
// durable, queryable audit storage. It mirrors the engine's in-memory change
// log without being part of it: a failing observability store never blocks
// the engine.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridianworks/tagvc/idgen"
)

// Event is a domain-level engine operation to record.
type Event struct {
	Operation  string // e.g. "snapshot_capture", "merge", "rollback"
	Branch     string
	SnapshotID string
	TagID      string
	UserID     string
	Details    string // optional JSON
	Success    bool
}

// EventLogger writes engine events and manages retention cleanup.
type EventLogger struct {
	db    *sql.DB
	newID idgen.Generator
}

// Option configures an EventLogger.
type Option func(*EventLogger)

// WithIDGenerator sets a custom ID generator for event IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *EventLogger) { l.newID = gen }
}

// NewEventLogger creates a logger backed by the given database.
func NewEventLogger(db *sql.DB, opts ...Option) *EventLogger {
	l := &EventLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// LogEvent records an engine event. Non-blocking: errors are logged via slog
// but do not propagate, so a failing observability store never blocks the
// engine.
func (l *EventLogger) LogEvent(ctx context.Context, event Event) {
	eventID := l.newID()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO revision_event_logs (
			event_id, operation, branch, snapshot_id, tag_id,
			user_id, details, success, created_at
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		eventID, event.Operation, event.Branch, event.SnapshotID, event.TagID,
		event.UserID, event.Details, event.Success, time.Now().Unix())
	if err != nil {
		slog.Error("observability event log failed", "error", err, "operation", event.Operation)
	}
}

// StoredEvent is a persisted event row.
type StoredEvent struct {
	EventID    string
	Operation  string
	Branch     string
	SnapshotID string
	TagID      string
	UserID     string
	Details    string
	Success    bool
	CreatedAt  time.Time
}

// QueryEvents returns events for an operation, newest-first.
// An empty operation matches all. Limit defaults to 100 when <= 0.
func (l *EventLogger) QueryEvents(ctx context.Context, operation string, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT event_id, operation, branch, snapshot_id, tag_id, user_id, details, success, created_at
		FROM revision_event_logs`
	args := []any{}
	if operation != "" {
		q += ` WHERE operation = ?`
		args = append(args, operation)
	}
	q += ` ORDER BY created_at DESC, event_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var e StoredEvent
		var created int64
		if err := rows.Scan(&e.EventID, &e.Operation, &e.Branch, &e.SnapshotID,
			&e.TagID, &e.UserID, &e.Details, &e.Success, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Cleanup deletes events older than the given number of days.
// Zero or negative days means no cleanup.
func Cleanup(ctx context.Context, db *sql.DB, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().Unix() - int64(days*86400)
	if _, err := db.ExecContext(ctx, `DELETE FROM revision_event_logs WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup revision_event_logs: %w", err)
	}
	return nil
}
