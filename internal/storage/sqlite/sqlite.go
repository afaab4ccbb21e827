// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/nimbusdb/nimbus-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Store is the local document-file backend: a single SQLite file holding key,
// schema, row, and audit data. It implements storage.Store.
type Store struct {
	db *sql.DB
}

// Open initializes the connection pool for the SQLite backend and ensures the
// required tables exist. The file's directory is created if missing; the
// special path ":memory:" is passed through for tests.
func Open(dbPath string) (*Store, error) {
	customLog.Printf("Storage: Initializing sqlite backend: %s", dbPath)

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			customLog.Warnf("Storage: Error creating data directory for '%s': %v", dbPath, err)
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	// Foreign keys for cascading cleanup, WAL and a busy timeout so concurrent
	// gateway calls do not trip over the writer lock.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		customLog.Warnf("Storage: Failed to open sqlite db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		customLog.Warnf("Storage: Failed to ping sqlite db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to connect to sqlite db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	customLog.Println("Storage: sqlite backend ready.")
	return store, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS databases (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS database_tables (
			id TEXT PRIMARY KEY,
			database_id TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (database_id, name),
			FOREIGN KEY (database_id) REFERENCES databases(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS table_columns (
			id TEXT PRIMARY KEY,
			table_id TEXT NOT NULL,
			name TEXT NOT NULL,
			data_type TEXT NOT NULL DEFAULT 'TEXT',
			is_nullable INTEGER NOT NULL DEFAULT 1,
			default_value TEXT,
			position INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (table_id, name),
			FOREIGN KEY (table_id) REFERENCES database_tables(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS table_rows (
			id TEXT PRIMARY KEY,
			table_id TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			FOREIGN KEY (table_id) REFERENCES database_tables(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_table_rows_table_created
			ON table_rows (table_id, created_at);`,
		// nolint:gosec // G101 false positive - table schema, not hardcoded credentials
		`CREATE TABLE IF NOT EXISTS api_keys (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			database_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			key_value TEXT UNIQUE NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			last_used_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (database_id) REFERENCES databases(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS query_logs (
			id TEXT PRIMARY KEY,
			database_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			method TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			response_time_ms INTEGER,
			request_body TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (database_id) REFERENCES databases(id) ON DELETE CASCADE
		);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			customLog.Warnf("Storage: Failed to ensure sqlite schema: %v", err)
			return fmt.Errorf("failed to ensure sqlite schema: %w", err)
		}
	}
	return nil
}
