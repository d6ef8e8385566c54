package observability

import "database/sql"

// Schema contains the DDL for the engine event-log tables.
// Call Init(db) to apply it, or embed the constant in your own schema
// management.
const Schema = `
-- Engine operation events
CREATE TABLE IF NOT EXISTS revision_event_logs (
    event_id TEXT PRIMARY KEY,
    operation TEXT NOT NULL,
    branch TEXT NOT NULL DEFAULT '',
    snapshot_id TEXT NOT NULL DEFAULT '',
    tag_id TEXT NOT NULL DEFAULT '',
    user_id TEXT NOT NULL DEFAULT '',
    details TEXT NOT NULL DEFAULT '',
    success INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_revision_events_op_time
    ON revision_event_logs(operation, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_revision_events_time
    ON revision_event_logs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_revision_events_branch
    ON revision_event_logs(branch) WHERE branch != '';
`

// Init applies the observability schema to db.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
