// Package sqlite implements the resource audit index on SQLite.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vertextoedge/streamcache/internal/port"
)

// Store implements port.ResourceRepository using SQLite
type Store struct {
	db *sql.DB
}

// Ensure Store implements port.ResourceRepository
var _ port.ResourceRepository = (*Store)(nil)

// Open opens a connection to the SQLite database
func Open(dbPath string) (*Store, error) {
	// Open database with WAL mode and busy timeout
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set pragmas for better performance
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	store := &Store{db: db}

	// Run migrations
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping checks database connectivity
func (s *Store) Ping() error {
	return s.db.Ping()
}

// migrate creates or updates the database schema
func (s *Store) migrate() error {
	migrations := []string{
		// Create resources table
		`CREATE TABLE IF NOT EXISTS resources (
			cache_path TEXT PRIMARY KEY,
			url TEXT NOT NULL DEFAULT '',
			file_name TEXT NOT NULL DEFAULT '',
			bytes_cached INTEGER NOT NULL DEFAULT 0,
			fragment_count INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		)`,

		// Create throughput samples table
		`CREATE TABLE IF NOT EXISTS throughput_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cache_path TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			elapsed_seconds REAL NOT NULL,
			FOREIGN KEY (cache_path) REFERENCES resources(cache_path) ON DELETE CASCADE
		)`,

		// Create indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_resources_updated_at ON resources(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_cache_path ON throughput_samples(cache_path)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}

	return nil
}
