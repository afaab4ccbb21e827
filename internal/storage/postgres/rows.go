// internal/storage/postgres/rows.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nimbusdb/nimbus-backend/internal/core"
	"github.com/nimbusdb/nimbus-backend/internal/domain"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

// SelectRows pushes the equality filters down as JSONB text extractions
// (data->>key = value), ordered by creation time ascending and capped at the
// row limit. Filter keys are validated identifiers, never raw SQL.
func (s *Store) SelectRows(ctx context.Context, tableID string, filters []core.Filter) ([]domain.Row, error) {
	query := `SELECT id, table_id, data, created_at, updated_at FROM table_rows WHERE table_id = $1`
	args := []any{tableID}
	for _, f := range filters {
		args = append(args, f.Key, f.Value)
		query += fmt.Sprintf(" AND data->>$%d = $%d", len(args)-1, len(args))
	}
	query += fmt.Sprintf(" ORDER BY created_at, id LIMIT %d", core.MaxSelectRows)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		customLog.Warnf("Storage: Failed SELECT on table %s: %v", tableID, err)
		return nil, fmt.Errorf("database error listing rows: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Row, 0)
	for rows.Next() {
		var row domain.Row
		var encoded []byte
		if err := rows.Scan(&row.ID, &row.TableID, &encoded, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed reading row data: %w", err)
		}
		if err := json.Unmarshal(encoded, &row.Data); err != nil {
			return nil, fmt.Errorf("failed decoding stored document: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading row list: %w", err)
	}
	return results, nil
}

// InsertRow assigns a new row id and creation timestamp and persists the
// document as-is.
func (s *Store) InsertRow(ctx context.Context, tableID string, data domain.Document) (*domain.Row, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidPayload, err)
	}

	now := time.Now().UTC()
	row := &domain.Row{
		ID:        uuid.New().String(),
		TableID:   tableID,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	insertSQL := `INSERT INTO table_rows (id, table_id, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, insertSQL, row.ID, row.TableID, encoded, row.CreatedAt, row.UpdatedAt); err != nil {
		if isPgErr(err, pgForeignKeyViolation) {
			return nil, storage.ErrTableNotFound
		}
		customLog.Warnf("Storage: Failed INSERT into table %s: %v", tableID, err)
		return nil, fmt.Errorf("database error inserting row: %w", err)
	}
	return row, nil
}

// UpdateRow loads the existing document, overlays the patch's top-level keys,
// and persists the merged result in its entirety. Concurrent updates resolve
// last-writer-wins; see the storage contract.
func (s *Store) UpdateRow(ctx context.Context, tableID, rowID string, patch domain.Document) (*domain.Row, error) {
	query := `SELECT id, table_id, data, created_at, updated_at FROM table_rows WHERE id = $1 AND table_id = $2`

	var row domain.Row
	var encoded []byte
	err := s.pool.QueryRow(ctx, query, rowID, tableID).Scan(&row.ID, &row.TableID, &encoded, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrRowNotFound
		}
		customLog.Warnf("Storage: Failed SELECT by id for update on table %s: %v", tableID, err)
		return nil, fmt.Errorf("database error loading row: %w", err)
	}
	if err := json.Unmarshal(encoded, &row.Data); err != nil {
		return nil, fmt.Errorf("failed decoding stored document: %w", err)
	}

	merged := row.Data.Merge(patch)
	mergedEncoded, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidPayload, err)
	}

	now := time.Now().UTC()
	updateSQL := `UPDATE table_rows SET data = $1, updated_at = $2 WHERE id = $3 AND table_id = $4`
	tag, err := s.pool.Exec(ctx, updateSQL, mergedEncoded, now, rowID, tableID)
	if err != nil {
		customLog.Warnf("Storage: Failed UPDATE on table %s, row %s: %v", tableID, rowID, err)
		return nil, fmt.Errorf("database error updating row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, storage.ErrRowNotFound
	}

	row.Data = merged
	row.UpdatedAt = now
	return &row, nil
}

// DeleteRow removes a row. Not idempotent: a second call fails with
// ErrRowNotFound.
func (s *Store) DeleteRow(ctx context.Context, tableID, rowID string) error {
	query := `DELETE FROM table_rows WHERE id = $1 AND table_id = $2`
	tag, err := s.pool.Exec(ctx, query, rowID, tableID)
	if err != nil {
		customLog.Warnf("Storage: Failed DELETE on table %s, row %s: %v", tableID, rowID, err)
		return fmt.Errorf("database error deleting row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrRowNotFound
	}
	return nil
}
