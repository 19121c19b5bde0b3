// Package store provides SQLite-backed persistence for directives and
// reminder settings.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS directives (
	id                TEXT PRIMARY KEY,
	ref               TEXT NOT NULL DEFAULT '',
	source            TEXT NOT NULL,
	sheet_name        TEXT NOT NULL DEFAULT '',
	meeting_date      DATETIME NOT NULL,
	subject           TEXT NOT NULL,
	particulars       TEXT NOT NULL DEFAULT '',
	owner             TEXT NOT NULL DEFAULT 'Unassigned',
	primary_email     TEXT NOT NULL DEFAULT '',
	secondary_email   TEXT NOT NULL DEFAULT '',
	amount            TEXT NOT NULL DEFAULT '',
	vendor            TEXT NOT NULL DEFAULT '',
	impl_start        DATETIME,
	impl_end          DATETIME,
	impl_status       TEXT NOT NULL DEFAULT 'Not Started',
	monitoring_status TEXT NOT NULL DEFAULT 'On Track',
	reminders         INTEGER NOT NULL DEFAULT 0,
	last_reminder     DATETIME,
	last_owner_update DATETIME,
	is_responsive     INTEGER NOT NULL DEFAULT 1,
	completion_note   TEXT NOT NULL DEFAULT '',
	outcomes          TEXT NOT NULL DEFAULT '[]',
	status_history    TEXT NOT NULL DEFAULT '[]',
	reminder_history  TEXT NOT NULL DEFAULT '[]',
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL,
	updated_by        TEXT NOT NULL DEFAULT '',
	version           INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_directives_status ON directives(monitoring_status);
CREATE INDEX IF NOT EXISTS idx_directives_owner  ON directives(owner);
CREATE INDEX IF NOT EXISTS idx_directives_sheet  ON directives(sheet_name);

CREATE TABLE IF NOT EXISTS reminder_settings (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	enabled    INTEGER NOT NULL DEFAULT 1,
	statuses   TEXT NOT NULL DEFAULT '{}',
	updated_at DATETIME NOT NULL
);
`

// migrateSQL maps retired monitoring statuses onto the current enum.
// "Awaiting Next Reminder" became On Track and "Non-Responsive" became the
// is_responsive flag; the next recompute reclassifies either way.
const migrateSQL = `
UPDATE directives
SET monitoring_status = 'On Track'
WHERE monitoring_status IN ('Awaiting Next Reminder', 'Non-Responsive');
`

// Store wraps a sql.DB with directive-specific operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database, applies the schema, and
// migrates any legacy status values in place.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	if _, err := conn.Exec(migrateSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: migrate legacy statuses: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
