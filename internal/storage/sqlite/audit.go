// internal/storage/sqlite/audit.go
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusdb/nimbus-backend/internal/domain"
)

// InsertQueryLog appends one audit entry. Entries are never mutated.
func (s *Store) InsertQueryLog(ctx context.Context, entry *domain.QueryLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var requestBody any
	if entry.RequestBody != nil {
		encoded, err := json.Marshal(entry.RequestBody)
		if err != nil {
			return fmt.Errorf("failed encoding request snapshot: %w", err)
		}
		requestBody = string(encoded)
	}

	insertSQL := `INSERT INTO query_logs (id, database_id, user_id, method, endpoint, status_code, response_time_ms, request_body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, insertSQL,
		entry.ID, entry.DatabaseID, entry.UserID, entry.Method, entry.Endpoint,
		entry.StatusCode, entry.ResponseTimeMs, requestBody, entry.CreatedAt)
	if err != nil {
		customLog.Warnf("Storage: Failed to insert query log for DB %s: %v", entry.DatabaseID, err)
		return fmt.Errorf("database error inserting query log: %w", err)
	}
	return nil
}

// ListQueryLogs returns a user's entries newest first, optionally scoped to
// one database.
func (s *Store) ListQueryLogs(ctx context.Context, userID, databaseID string, limit int) ([]domain.QueryLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT id, database_id, user_id, method, endpoint, status_code, response_time_ms, request_body, created_at
		FROM query_logs WHERE user_id = ?`
	args := []any{userID}
	if databaseID != "" {
		query += ` AND database_id = ?`
		args = append(args, databaseID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		customLog.Warnf("Storage: Error listing query logs for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing query logs: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.QueryLogEntry, 0)
	for rows.Next() {
		var entry domain.QueryLogEntry
		var responseTime sql.NullInt64
		var requestBody sql.NullString
		if err := rows.Scan(&entry.ID, &entry.DatabaseID, &entry.UserID, &entry.Method, &entry.Endpoint,
			&entry.StatusCode, &responseTime, &requestBody, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed processing query log list: %w", err)
		}
		if responseTime.Valid {
			entry.ResponseTimeMs = responseTime.Int64
		}
		if requestBody.Valid && requestBody.String != "" {
			if err := json.Unmarshal([]byte(requestBody.String), &entry.RequestBody); err != nil {
				customLog.Warnf("Storage: Unreadable request snapshot on log %s: %v", entry.ID, err)
			}
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading query log list: %w", err)
	}
	return entries, nil
}

// ClearQueryLogs bulk-deletes a database's entries and reports how many went.
func (s *Store) ClearQueryLogs(ctx context.Context, databaseID string) (int64, error) {
	deleteSQL := `DELETE FROM query_logs WHERE database_id = ?`
	result, err := s.db.ExecContext(ctx, deleteSQL, databaseID)
	if err != nil {
		customLog.Warnf("Storage: Error clearing query logs for DB %s: %v", databaseID, err)
		return 0, fmt.Errorf("database error clearing query logs: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed confirming query log clear: %w", err)
	}
	return rowsAffected, nil
}
