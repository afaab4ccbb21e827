// internal/storage/sqlite/schema.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/nimbusdb/nimbus-backend/internal/domain"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

// ResolveTable maps a table name to its internal id within a database.
// SQLite TEXT equality uses BINARY collation, so the match is exact and
// case-sensitive as required.
func (s *Store) ResolveTable(ctx context.Context, databaseID, tableName string) (string, error) {
	query := `SELECT id FROM database_tables WHERE database_id = ? AND name = ? LIMIT 1`
	var tableID string
	err := s.db.QueryRowContext(ctx, query, databaseID, tableName).Scan(&tableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrTableNotFound
		}
		customLog.Warnf("Storage: Error resolving table '%s' in DB %s: %v", tableName, databaseID, err)
		return "", fmt.Errorf("database error resolving table: %w", err)
	}
	return tableID, nil
}

// --- Database Operations ---

// CreateDatabase registers a new logical namespace for the user.
func (s *Store) CreateDatabase(ctx context.Context, userID, name, description string) (*domain.Database, error) {
	db := &domain.Database{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Status:      "active",
		CreatedAt:   time.Now().UTC(),
	}

	insertSQL := `INSERT INTO databases (id, user_id, name, description, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, insertSQL, db.ID, db.UserID, db.Name, db.Description, db.Status, db.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			customLog.Warnf("Storage: Constraint violation registering DB '%s' for user %s: %v", name, userID, err)
			return nil, storage.ErrDatabaseExists
		}
		customLog.Warnf("Storage: Failed to insert database record for UserID %s, name '%s': %v", userID, name, err)
		return nil, fmt.Errorf("database error registering database: %w", err)
	}
	return db, nil
}

// ListDatabases returns the user's databases with their table counts.
func (s *Store) ListDatabases(ctx context.Context, userID string) ([]domain.Database, error) {
	query := `SELECT d.id, d.user_id, d.name, d.description, d.status, d.created_at,
			(SELECT COUNT(*) FROM database_tables t WHERE t.database_id = d.id)
		FROM databases d WHERE d.user_id = ? ORDER BY d.name`
	rows, err := s.db.QueryContext(ctx, query, userID)
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
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading database list: %w", err)
	}
	return databases, nil
}

// FindDatabase fetches a database the user owns, or ErrDatabaseNotFound.
func (s *Store) FindDatabase(ctx context.Context, userID, databaseID string) (*domain.Database, error) {
	query := `SELECT id, user_id, name, description, status, created_at FROM databases
		WHERE id = ? AND user_id = ? LIMIT 1`
	var db domain.Database
	err := s.db.QueryRowContext(ctx, query, databaseID, userID).Scan(&db.ID, &db.UserID, &db.Name, &db.Description, &db.Status, &db.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDatabaseNotFound
		}
		customLog.Warnf("Storage: Error finding database %s for UserID %s: %v", databaseID, userID, err)
		return nil, fmt.Errorf("database error finding database: %w", err)
	}
	return &db, nil
}

// DeleteDatabase removes the namespace. Tables, columns, rows, keys, and
// query logs go with it through the foreign key cascade.
func (s *Store) DeleteDatabase(ctx context.Context, userID, databaseID string) error {
	deleteSQL := `DELETE FROM databases WHERE id = ? AND user_id = ?`
	result, err := s.db.ExecContext(ctx, deleteSQL, databaseID, userID)
	if err != nil {
		customLog.Warnf("Storage: Error deleting database %s: %v", databaseID, err)
		return fmt.Errorf("database error deleting database: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming database deletion: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrDatabaseNotFound
	}
	return nil
}

// --- Table Operations ---

// CreateTable declares a new table with its ordered column metadata inside a
// transaction so a half-declared table never becomes visible.
func (s *Store) CreateTable(ctx context.Context, databaseID, name string, columns []domain.Column) (*domain.Table, error) {
	table := &domain.Table{
		ID:         uuid.New().String(),
		DatabaseID: databaseID,
		Name:       name,
		CreatedAt:  time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("database error starting table creation: %w", err)
	}
	defer tx.Rollback()

	insertSQL := `INSERT INTO database_tables (id, database_id, name, created_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertSQL, table.ID, table.DatabaseID, table.Name, table.CreatedAt); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			if sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
				return nil, storage.ErrDatabaseNotFound
			}
			return nil, storage.ErrTableExists
		}
		customLog.Warnf("Storage: Failed to insert table '%s' in DB %s: %v", name, databaseID, err)
		return nil, fmt.Errorf("database error creating table: %w", err)
	}

	columnSQL := `INSERT INTO table_columns (id, table_id, name, data_type, is_nullable, default_value, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for i, col := range columns {
		if _, err := tx.ExecContext(ctx, columnSQL,
			uuid.New().String(), table.ID, col.Name, col.DataType, col.IsNullable, col.DefaultValue, i, table.CreatedAt); err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
				return nil, storage.ErrColumnExists
			}
			customLog.Warnf("Storage: Failed to insert column '%s' for table '%s': %v", col.Name, name, err)
			return nil, fmt.Errorf("database error creating column: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("database error committing table creation: %w", err)
	}
	return table, nil
}

// ListTables returns the tables declared in a database, by name.
func (s *Store) ListTables(ctx context.Context, databaseID string) ([]domain.Table, error) {
	query := `SELECT id, database_id, name, created_at FROM database_tables WHERE database_id = ? ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query, databaseID)
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
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading table list: %w", err)
	}
	return tables, nil
}

// DeleteTable drops a table definition. Its columns and rows cascade away.
func (s *Store) DeleteTable(ctx context.Context, databaseID, tableID string) error {
	deleteSQL := `DELETE FROM database_tables WHERE id = ? AND database_id = ?`
	result, err := s.db.ExecContext(ctx, deleteSQL, tableID, databaseID)
	if err != nil {
		customLog.Warnf("Storage: Error deleting table %s: %v", tableID, err)
		return fmt.Errorf("database error deleting table: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming table deletion: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrTableNotFound
	}
	return nil
}

// --- Column Operations ---

// ListColumns returns declared column metadata ordered by position.
func (s *Store) ListColumns(ctx context.Context, tableID string) ([]domain.Column, error) {
	query := `SELECT id, table_id, name, data_type, is_nullable, default_value, position, created_at
		FROM table_columns WHERE table_id = ? ORDER BY position`
	rows, err := s.db.QueryContext(ctx, query, tableID)
	if err != nil {
		customLog.Warnf("Storage: Error listing columns for table %s: %v", tableID, err)
		return nil, fmt.Errorf("database error listing columns: %w", err)
	}
	defer rows.Close()

	columns := make([]domain.Column, 0)
	for rows.Next() {
		var col domain.Column
		var defaultValue sql.NullString
		if err := rows.Scan(&col.ID, &col.TableID, &col.Name, &col.DataType, &col.IsNullable, &defaultValue, &col.Position, &col.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed processing column list: %w", err)
		}
		if defaultValue.Valid {
			v := defaultValue.String
			col.DefaultValue = &v
		}
		columns = append(columns, col)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading column list: %w", err)
	}
	return columns, nil
}

// AddColumn appends declared column metadata after the table's current last
// position. Column add is the only schema migration supported.
func (s *Store) AddColumn(ctx context.Context, tableID string, column domain.Column) (*domain.Column, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM database_tables WHERE id = ?`, tableID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("database error checking table: %w", err)
	}
	if exists == 0 {
		return nil, storage.ErrTableNotFound
	}

	column.ID = uuid.New().String()
	column.TableID = tableID
	column.CreatedAt = time.Now().UTC()

	insertSQL := `INSERT INTO table_columns (id, table_id, name, data_type, is_nullable, default_value, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM table_columns WHERE table_id = ?), ?)`
	_, err := s.db.ExecContext(ctx, insertSQL,
		column.ID, column.TableID, column.Name, column.DataType, column.IsNullable, column.DefaultValue, tableID, column.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, storage.ErrColumnExists
		}
		customLog.Warnf("Storage: Failed to add column '%s' to table %s: %v", column.Name, tableID, err)
		return nil, fmt.Errorf("database error adding column: %w", err)
	}

	query := `SELECT position FROM table_columns WHERE id = ?`
	if err := s.db.QueryRowContext(ctx, query, column.ID).Scan(&column.Position); err != nil {
		return nil, fmt.Errorf("database error reading column position: %w", err)
	}
	return &column, nil
}
