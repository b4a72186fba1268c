package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB mirrors measurement records into SQLite
type DB struct {
	*sql.DB
	runID string
}

// New creates a new database connection. Rows written through it are tagged
// with runID.
func New(path, runID string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("database open failed: %w", err)
	}
	// one writer, sequential cycles
	db.SetMaxOpenConns(1)

	return &DB{DB: db, runID: runID}, nil
}

// Init enables WAL mode and creates all necessary tables
func (db *DB) Init() error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("set synchronous: %w", err)
	}

	schema := `
    CREATE TABLE IF NOT EXISTS measurements (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        timestamp_utc TEXT NOT NULL,
        timestamp_local TEXT NOT NULL,
        server_id TEXT NOT NULL DEFAULT '',
        server_name TEXT NOT NULL DEFAULT '',
        server_country TEXT NOT NULL DEFAULT '',
        server_sponsor TEXT NOT NULL DEFAULT '',
        ping_ms REAL,
        download_mbps REAL,
        upload_mbps REAL,
        bytes_received INTEGER,
        bytes_sent INTEGER,
        error TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_measurements_timestamp ON measurements(timestamp_utc);
    CREATE INDEX IF NOT EXISTS idx_measurements_run ON measurements(run_id);
    `

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}

	return nil
}
