// internal/storage/postgres/audit.go
package postgres

import (
	"context"
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

	var requestBody []byte
	if entry.RequestBody != nil {
		encoded, err := json.Marshal(entry.RequestBody)
		if err != nil {
			return fmt.Errorf("failed encoding request snapshot: %w", err)
		}
		requestBody = encoded
	}

	insertSQL := `INSERT INTO query_logs (id, database_id, user_id, method, endpoint, status_code, response_time_ms, request_body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, insertSQL,
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
		FROM query_logs WHERE user_id = $1`
	args := []any{userID}
	if databaseID != "" {
		args = append(args, databaseID)
		query += fmt.Sprintf(" AND database_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		customLog.Warnf("Storage: Error listing query logs for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing query logs: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.QueryLogEntry, 0)
	for rows.Next() {
		var entry domain.QueryLogEntry
		var responseTime *int64
		var requestBody []byte
		if err := rows.Scan(&entry.ID, &entry.DatabaseID, &entry.UserID, &entry.Method, &entry.Endpoint,
			&entry.StatusCode, &responseTime, &requestBody, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed processing query log list: %w", err)
		}
		if responseTime != nil {
			entry.ResponseTimeMs = *responseTime
		}
		if len(requestBody) > 0 {
			if err := json.Unmarshal(requestBody, &entry.RequestBody); err != nil {
				customLog.Warnf("Storage: Unreadable request snapshot on log %s: %v", entry.ID, err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading query log list: %w", err)
	}
	return entries, nil
}

// ClearQueryLogs bulk-deletes a database's entries and reports how many went.
func (s *Store) ClearQueryLogs(ctx context.Context, databaseID string) (int64, error) {
	query := `DELETE FROM query_logs WHERE database_id = $1`
	tag, err := s.pool.Exec(ctx, query, databaseID)
	if err != nil {
		customLog.Warnf("Storage: Error clearing query logs for DB %s: %v", databaseID, err)
		return 0, fmt.Errorf("database error clearing query logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
