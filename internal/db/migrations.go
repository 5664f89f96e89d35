package db

import (
	"context"
	"fmt"
)

// schema holds one entry per schema version. Entries are append-only: the
// database records how many it has applied in PRAGMA user_version.
var schema = []string{
	// 1: request log. day and hour are derived so the history queries can
	// group without re-parsing timestamps.
	`CREATE TABLE IF NOT EXISTS speech_requests (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id  TEXT UNIQUE,
		timestamp   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		session_id  TEXT,
		user_id     TEXT,
		provider    TEXT NOT NULL,
		mode        TEXT NOT NULL DEFAULT 'standard',
		voice_id    TEXT,
		text_length INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		status_code INTEGER DEFAULT 200,
		cache_hit   INTEGER NOT NULL DEFAULT 0,
		batched     INTEGER NOT NULL DEFAULT 0,
		batch_id    TEXT,
		error       TEXT,
		day  TEXT    GENERATED ALWAYS AS (date(timestamp)) STORED,
		hour INTEGER GENERATED ALWAYS AS (CAST(strftime('%H', timestamp) AS INTEGER)) STORED
	);
	CREATE INDEX IF NOT EXISTS idx_speech_requests_timestamp ON speech_requests(timestamp);
	CREATE INDEX IF NOT EXISTS idx_speech_requests_provider ON speech_requests(provider, timestamp);
	CREATE INDEX IF NOT EXISTS idx_speech_requests_session ON speech_requests(session_id);
	CREATE INDEX IF NOT EXISTS idx_speech_requests_day_hour ON speech_requests(day, hour);`,

	// 2: saved projections for the history trend and the budget comparison.
	`CREATE TABLE IF NOT EXISTS estimate_snapshots (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		time_range     TEXT NOT NULL,
		monthly_users  INTEGER NOT NULL,
		sample_size    INTEGER NOT NULL DEFAULT 0,
		total_monthly  REAL NOT NULL DEFAULT 0,
		cached         REAL NOT NULL DEFAULT 0,
		uncached       REAL NOT NULL DEFAULT 0,
		character_cost REAL NOT NULL DEFAULT 0,
		api_call_cost  REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_estimate_snapshots_timestamp ON estimate_snapshots(timestamp);`,
}

// SchemaVersion reports how many schema steps the database has applied.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	err := db.QueryRowContext(context.Background(), "PRAGMA user_version").Scan(&v)
	return v, err
}

// migrate applies the schema steps the database has not seen yet, each in
// its own transaction.
func (db *DB) migrate(ctx context.Context) error {
	current, err := db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for v := current; v < len(schema); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, schema[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	return nil
}

// NormalizeTimestamps rewrites timestamps that were stored in a layout
// SQLite's date functions cannot compare, such as "2025-01-02T03:04:05Z" or
// Go's default "2025-01-02 03:04:05 +0000 UTC".
func (db *DB) NormalizeTimestamps() error {
	for _, table := range []string{"speech_requests", "estimate_snapshots"} {
		q := `UPDATE ` + table + `
			SET timestamp = REPLACE(SUBSTR(timestamp, 1, 19), 'T', ' ')
			WHERE length(timestamp) > 19 OR timestamp LIKE '%T%'`
		if _, err := db.ExecContext(context.Background(), q); err != nil {
			return fmt.Errorf("normalize %s timestamps: %w", table, err)
		}
	}
	return nil
}
