// internal/storage/sqlite/rows.go
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusdb/nimbus-backend/internal/core"
	"github.com/nimbusdb/nimbus-backend/internal/domain"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

// SelectRows scans a table's documents in creation order and applies ANDed
// equality filters against the decoded data. Filtering happens in-process:
// this backend stores documents as opaque JSON text, and pushing string
// equality into SQL would change semantics for numeric and boolean values.
// The scan stops as soon as the row cap is reached.
func (s *Store) SelectRows(ctx context.Context, tableID string, filters []core.Filter) ([]domain.Row, error) {
	query := `SELECT id, table_id, data, created_at, updated_at FROM table_rows
		WHERE table_id = ? ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, query, tableID)
	if err != nil {
		customLog.Warnf("Storage: Failed SELECT on table %s: %v", tableID, err)
		return nil, fmt.Errorf("database error listing rows: %w", err)
	}
	defer rows.Close()

	results := make([]domain.Row, 0)
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		if !core.MatchesDocument(filters, row.Data) {
			continue
		}
		results = append(results, *row)
		if len(results) >= core.MaxSelectRows {
			break
		}
	}
	if err = rows.Err(); err != nil {
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

	insertSQL := `INSERT INTO table_rows (id, table_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, insertSQL, row.ID, row.TableID, string(encoded), row.CreatedAt, row.UpdatedAt); err != nil {
		customLog.Warnf("Storage: Failed INSERT into table %s: %v", tableID, err)
		return nil, fmt.Errorf("database error inserting row: %w", err)
	}
	return row, nil
}

// UpdateRow loads the existing document, overlays the patch's top-level keys
// onto it, and persists the merged result in its entirety. Two concurrent
// updates may each read the same pre-update document and race to a
// last-writer-wins outcome; that is the documented contract, not a bug.
func (s *Store) UpdateRow(ctx context.Context, tableID, rowID string, patch domain.Document) (*domain.Row, error) {
	query := `SELECT id, table_id, data, created_at, updated_at FROM table_rows
		WHERE id = ? AND table_id = ? LIMIT 1`

	var row domain.Row
	var encoded string
	err := s.db.QueryRowContext(ctx, query, rowID, tableID).Scan(&row.ID, &row.TableID, &encoded, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRowNotFound
		}
		customLog.Warnf("Storage: Failed SELECT by id for update on table %s: %v", tableID, err)
		return nil, fmt.Errorf("database error loading row: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &row.Data); err != nil {
		return nil, fmt.Errorf("failed decoding stored document: %w", err)
	}

	merged := row.Data.Merge(patch)
	mergedEncoded, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidPayload, err)
	}

	now := time.Now().UTC()
	updateSQL := `UPDATE table_rows SET data = ?, updated_at = ? WHERE id = ? AND table_id = ?`
	result, err := s.db.ExecContext(ctx, updateSQL, string(mergedEncoded), now, rowID, tableID)
	if err != nil {
		customLog.Warnf("Storage: Failed UPDATE on table %s, row %s: %v", tableID, rowID, err)
		return nil, fmt.Errorf("database error updating row: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed confirming row update: %w", err)
	}
	if rowsAffected == 0 {
		// The row vanished between the read and the write.
		return nil, storage.ErrRowNotFound
	}

	row.Data = merged
	row.UpdatedAt = now
	return &row, nil
}

// DeleteRow removes a row. Not idempotent: once the row is gone a second
// delete fails with ErrRowNotFound.
func (s *Store) DeleteRow(ctx context.Context, tableID, rowID string) error {
	deleteSQL := `DELETE FROM table_rows WHERE id = ? AND table_id = ?`
	result, err := s.db.ExecContext(ctx, deleteSQL, rowID, tableID)
	if err != nil {
		customLog.Warnf("Storage: Failed DELETE on table %s, row %s: %v", tableID, rowID, err)
		return fmt.Errorf("database error deleting row: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming row deletion: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrRowNotFound
	}
	return nil
}

func scanRow(rows *sql.Rows) (*domain.Row, error) {
	var row domain.Row
	var encoded string
	if err := rows.Scan(&row.ID, &row.TableID, &encoded, &row.CreatedAt, &row.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed reading row data: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &row.Data); err != nil {
		return nil, fmt.Errorf("failed decoding stored document: %w", err)
	}
	return &row, nil
}
