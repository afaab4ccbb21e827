// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbusdb/nimbus-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Postgres error codes the backend maps to sentinel errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Store is the networked relational backend, holding all gateway state in a
// Postgres database. It implements storage.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates the connection pool for the Postgres backend and ensures the
// required tables exist.
func Open(ctx context.Context, connString string) (*Store, error) {
	customLog.Println("Storage: Initializing postgres backend...")

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		customLog.Warnf("Storage: Failed to create postgres pool: %v", err)
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		customLog.Warnf("Storage: Failed to ping postgres: %v", err)
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	customLog.Println("Storage: postgres backend ready.")
	return store, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// isPgErr reports whether err is a Postgres error with the given code.
func isPgErr(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS databases (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (user_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS database_tables (
			id UUID PRIMARY KEY,
			database_id UUID NOT NULL REFERENCES databases(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (database_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS table_columns (
			id UUID PRIMARY KEY,
			table_id UUID NOT NULL REFERENCES database_tables(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			data_type TEXT NOT NULL DEFAULT 'TEXT',
			is_nullable BOOLEAN NOT NULL DEFAULT true,
			default_value TEXT,
			position INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (table_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS table_rows (
			id UUID PRIMARY KEY,
			table_id UUID NOT NULL REFERENCES database_tables(id) ON DELETE CASCADE,
			data JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_table_rows_table_created
			ON table_rows (table_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			database_id UUID NOT NULL REFERENCES databases(id) ON DELETE CASCADE,
			name TEXT NOT NULL DEFAULT '',
			key_value TEXT UNIQUE NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT true,
			last_used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS query_logs (
			id UUID PRIMARY KEY,
			database_id UUID NOT NULL REFERENCES databases(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			method TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			response_time_ms BIGINT,
			request_body JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			customLog.Warnf("Storage: Failed to ensure postgres schema: %v", err)
			return fmt.Errorf("failed to ensure postgres schema: %w", err)
		}
	}
	return nil
}
