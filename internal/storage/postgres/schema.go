// internal/storage/postgres/schema.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nimbusdb/nimbus-backend/internal/domain"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

// ResolveTable maps a table name to its internal id within a database. The
// equality is exact and case-sensitive.
func (s *Store) ResolveTable(ctx context.Context, databaseID, tableName string) (string, error) {
	query := `SELECT id FROM database_tables WHERE database_id = $1 AND name = $2`
	var tableID string
	err := s.pool.QueryRow(ctx, query, databaseID, tableName).Scan(&tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrTableNotFound
		}
		customLog.Warnf("Storage: Error resolving table '%s' in DB %s: %v", tableName, databaseID, err)
		return "", fmt.Errorf("database error resolving table: %w", err)
	}
	return tableID, nil
}

// --- Database Operations ---

func (s *Store) CreateDatabase(ctx context.Context, userID, name, description string) (*domain.Database, error) {
	db := &domain.Database{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Status:      "active",
		CreatedAt:   time.Now().UTC(),
	}

	insertSQL := `INSERT INTO databases (id, user_id, name, description, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.pool.Exec(ctx, insertSQL, db.ID, db.UserID, db.Name, db.Description, db.Status, db.CreatedAt); err != nil {
		if isPgErr(err, pgUniqueViolation) {
			return nil, storage.ErrDatabaseExists
		}
		customLog.Warnf("Storage: Failed to insert database record for UserID %s, name '%s': %v", userID, name, err)
		return nil, fmt.Errorf("database error registering database: %w", err)
	}
	return db, nil
}

func (s *Store) ListDatabases(ctx context.Context, userID string) ([]domain.Database, error) {
	query := `SELECT d.id, d.user_id, d.name, d.description, d.status, d.created_at,
			(SELECT COUNT(*) FROM database_tables t WHERE t.database_id = d.id)
		FROM databases d WHERE d.user_id = $1 ORDER BY d.name`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		customLog.Warnf("Storage: Error listing databases for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing databases: %w", err)
	}
	defer rows.Close()

	databases := make([]domain.Database, 0)
	for rows.Next() {
		var db domain.Database
		if err := rows.Scan(&db.ID, &db.UserID, &db.Name, &db.Description, &db.Status, &db.CreatedAt, &db.Tables); err != nil {
			return nil, fmt.Errorf("failed processing database list: %w", err)
		}
		databases = append(databases, db)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading database list: %w", err)
	}
	return databases, nil
}

func (s *Store) FindDatabase(ctx context.Context, userID, databaseID string) (*domain.Database, error) {
	query := `SELECT id, user_id, name, description, status, created_at FROM databases
		WHERE id = $1 AND user_id = $2`
	var db domain.Database
	err := s.pool.QueryRow(ctx, query, databaseID, userID).Scan(&db.ID, &db.UserID, &db.Name, &db.Description, &db.Status, &db.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrDatabaseNotFound
		}
		customLog.Warnf("Storage: Error finding database %s for UserID %s: %v", databaseID, userID, err)
		return nil, fmt.Errorf("database error finding database: %w", err)
	}
	return &db, nil
}

func (s *Store) DeleteDatabase(ctx context.Context, userID, databaseID string) error {
	query := `DELETE FROM databases WHERE id = $1 AND user_id = $2`
	tag, err := s.pool.Exec(ctx, query, databaseID, userID)
	if err != nil {
		customLog.Warnf("Storage: Error deleting database %s: %v", databaseID, err)
		return fmt.Errorf("database error deleting database: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrDatabaseNotFound
	}
	return nil
}

// --- Table Operations ---

// CreateTable declares a table and its ordered columns in one transaction.
func (s *Store) CreateTable(ctx context.Context, databaseID, name string, columns []domain.Column) (*domain.Table, error) {
	table := &domain.Table{
		ID:         uuid.New().String(),
		DatabaseID: databaseID,
		Name:       name,
		CreatedAt:  time.Now().UTC(),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("database error starting table creation: %w", err)
	}
	defer tx.Rollback(ctx)

	insertSQL := `INSERT INTO database_tables (id, database_id, name, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, insertSQL, table.ID, table.DatabaseID, table.Name, table.CreatedAt); err != nil {
		if isPgErr(err, pgUniqueViolation) {
			return nil, storage.ErrTableExists
		}
		if isPgErr(err, pgForeignKeyViolation) {
			return nil, storage.ErrDatabaseNotFound
		}
		customLog.Warnf("Storage: Failed to insert table '%s' in DB %s: %v", name, databaseID, err)
		return nil, fmt.Errorf("database error creating table: %w", err)
	}

	columnSQL := `INSERT INTO table_columns (id, table_id, name, data_type, is_nullable, default_value, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i, col := range columns {
		if _, err := tx.Exec(ctx, columnSQL,
			uuid.New().String(), table.ID, col.Name, col.DataType, col.IsNullable, col.DefaultValue, i, table.CreatedAt); err != nil {
			if isPgErr(err, pgUniqueViolation) {
				return nil, storage.ErrColumnExists
			}
			customLog.Warnf("Storage: Failed to insert column '%s' for table '%s': %v", col.Name, name, err)
			return nil, fmt.Errorf("database error creating column: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("database error committing table creation: %w", err)
	}
	return table, nil
}

func (s *Store) ListTables(ctx context.Context, databaseID string) ([]domain.Table, error) {
	query := `SELECT id, database_id, name, created_at FROM database_tables WHERE database_id = $1 ORDER BY name`
	rows, err := s.pool.Query(ctx, query, databaseID)
	if err != nil {
		customLog.Warnf("Storage: Error listing tables for DB %s: %v", databaseID, err)
		return nil, fmt.Errorf("database error listing tables: %w", err)
	}
	defer rows.Close()

	tables := make([]domain.Table, 0)
	for rows.Next() {
		var table domain.Table
		if err := rows.Scan(&table.ID, &table.DatabaseID, &table.Name, &table.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed processing table list: %w", err)
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading table list: %w", err)
	}
	return tables, nil
}

func (s *Store) DeleteTable(ctx context.Context, databaseID, tableID string) error {
	query := `DELETE FROM database_tables WHERE id = $1 AND database_id = $2`
	tag, err := s.pool.Exec(ctx, query, tableID, databaseID)
	if err != nil {
		customLog.Warnf("Storage: Error deleting table %s: %v", tableID, err)
		return fmt.Errorf("database error deleting table: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrTableNotFound
	}
	return nil
}

// --- Column Operations ---

func (s *Store) ListColumns(ctx context.Context, tableID string) ([]domain.Column, error) {
	query := `SELECT id, table_id, name, data_type, is_nullable, default_value, position, created_at
		FROM table_columns WHERE table_id = $1 ORDER BY position`
	rows, err := s.pool.Query(ctx, query, tableID)
	if err != nil {
		customLog.Warnf("Storage: Error listing columns for table %s: %v", tableID, err)
		return nil, fmt.Errorf("database error listing columns: %w", err)
	}
	defer rows.Close()

	columns := make([]domain.Column, 0)
	for rows.Next() {
		var col domain.Column
		if err := rows.Scan(&col.ID, &col.TableID, &col.Name, &col.DataType, &col.IsNullable, &col.DefaultValue, &col.Position, &col.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed processing column list: %w", err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading column list: %w", err)
	}
	return columns, nil
}

// AddColumn appends declared column metadata after the table's current last
// position.
func (s *Store) AddColumn(ctx context.Context, tableID string, column domain.Column) (*domain.Column, error) {
	column.ID = uuid.New().String()
	column.TableID = tableID
	column.CreatedAt = time.Now().UTC()

	insertSQL := `INSERT INTO table_columns (id, table_id, name, data_type, is_nullable, default_value, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM table_columns WHERE table_id = $2), $7)
		RETURNING position`
	err := s.pool.QueryRow(ctx, insertSQL,
		column.ID, column.TableID, column.Name, column.DataType, column.IsNullable, column.DefaultValue, column.CreatedAt).
		Scan(&column.Position)
	if err != nil {
		if isPgErr(err, pgUniqueViolation) {
			return nil, storage.ErrColumnExists
		}
		if isPgErr(err, pgForeignKeyViolation) {
			return nil, storage.ErrTableNotFound
		}
		customLog.Warnf("Storage: Failed to add column '%s' to table %s: %v", column.Name, tableID, err)
		return nil, fmt.Errorf("database error adding column: %w", err)
	}
	return &column, nil
}
