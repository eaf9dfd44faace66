package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store provides device registry, counter, and sensor data operations.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Pragmas go in the DSN so they apply to every pooled connection, not
	// just the one a plain Exec would run on. WAL lets the liveness
	// listener read committed state while the loop writes; the busy
	// timeout retries instead of returning SQLITE_BUSY under contention.
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates the schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		did_document TEXT NOT NULL DEFAULT '',
		public_key TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS device_counters (
		device_id TEXT PRIMARY KEY,
		counter INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS sensor_data (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		encrypted_payload BLOB NOT NULL,
		stage1_key_hash TEXT NOT NULL,
		stage2_key_hash TEXT NOT NULL,
		counter INTEGER NOT NULL,
		timestamp TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sensor_data_device ON sensor_data(device_id, timestamp);

	CREATE TABLE IF NOT EXISTS analytics (
		id TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		metric_type TEXT NOT NULL,
		value REAL NOT NULL,
		time_window TEXT NOT NULL,
		calculated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analytics_device ON analytics(device_id, metric_type);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable. Read-only; safe for the
// liveness listener to call concurrently with the processing loop.
func (s *Store) Ping() error {
	var one int
	if err := s.db.QueryRow("SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
