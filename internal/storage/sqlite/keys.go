// internal/storage/sqlite/keys.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/nimbusdb/nimbus-backend/internal/auth"
	"github.com/nimbusdb/nimbus-backend/internal/domain"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

// Authenticate resolves an opaque secret to its key identity. The key_value
// column carries a UNIQUE index, so the lookup is a single indexed equality
// match. Unknown and inactive keys are indistinguishable to the caller.
func (s *Store) Authenticate(ctx context.Context, secret string) (*domain.KeyIdentity, error) {
	query := `SELECT id, user_id, database_id, is_active FROM api_keys WHERE key_value = ? LIMIT 1`

	var identity domain.KeyIdentity
	var isActive bool
	err := s.db.QueryRowContext(ctx, query, secret).Scan(&identity.KeyID, &identity.UserID, &identity.DatabaseID, &isActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrInvalidKey
		}
		customLog.Warnf("Storage: Error authenticating API key: %v", err)
		return nil, fmt.Errorf("database error during key authentication: %w", err)
	}
	if !isActive {
		return nil, storage.ErrInvalidKey
	}
	return &identity, nil
}

// TouchLastUsed stamps last_used_at for a key. A vanished key is not an
// error; the call raced a deletion.
func (s *Store) TouchLastUsed(ctx context.Context, keyID string) error {
	query := `UPDATE api_keys SET last_used_at = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), keyID); err != nil {
		customLog.Warnf("Storage: Failed to touch last_used_at for key %s: %v", keyID, err)
		return fmt.Errorf("database error touching api key: %w", err)
	}
	return nil
}

// CreateAPIKey generates and stores a new key scoped to a database the user
// owns. The full secret is present on the returned struct exactly once.
func (s *Store) CreateAPIKey(ctx context.Context, userID, databaseID, name string) (*domain.APIKey, error) {
	if _, err := s.FindDatabase(ctx, userID, databaseID); err != nil {
		return nil, err
	}

	secret, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	key := &domain.APIKey{
		ID:         uuid.New().String(),
		UserID:     userID,
		DatabaseID: databaseID,
		Name:       name,
		KeyValue:   secret,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}

	insertSQL := `INSERT INTO api_keys (id, user_id, database_id, name, key_value, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)`
	_, err = s.db.ExecContext(ctx, insertSQL, key.ID, key.UserID, key.DatabaseID, key.Name, key.KeyValue, key.CreatedAt)
	if err != nil {
		customLog.Warnf("Storage: Failed to store API key for UserID %s, DB %s: %v", userID, databaseID, err)
		return nil, fmt.Errorf("database error storing API key: %w", err)
	}
	return key, nil
}

// ListAPIKeys returns the user's keys with secrets masked.
func (s *Store) ListAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error) {
	query := `SELECT id, user_id, database_id, name, key_value, is_active, last_used_at, created_at
		FROM api_keys WHERE user_id = ? ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		customLog.Warnf("Storage: Error listing API keys for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing API keys: %w", err)
	}
	defer rows.Close()

	keys := make([]domain.APIKey, 0)
	for rows.Next() {
		var key domain.APIKey
		var lastUsed sql.NullTime
		if err := rows.Scan(&key.ID, &key.UserID, &key.DatabaseID, &key.Name, &key.KeyValue, &key.IsActive, &lastUsed, &key.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed processing API key list: %w", err)
		}
		if lastUsed.Valid {
			t := lastUsed.Time
			key.LastUsedAt = &t
		}
		key.KeyValue = maskSecret(key.KeyValue)
		keys = append(keys, key)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading API key list: %w", err)
	}
	return keys, nil
}

// RegenerateAPIKey atomically replaces the secret value with fresh random
// material. The old secret stops authenticating the moment the UPDATE
// commits.
func (s *Store) RegenerateAPIKey(ctx context.Context, userID, keyID string) (*domain.APIKey, error) {
	secret, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	updateSQL := `UPDATE api_keys SET key_value = ? WHERE id = ? AND user_id = ?`
	result, err := s.db.ExecContext(ctx, updateSQL, secret, keyID, userID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			// Collision on the random secret; astronomically unlikely.
			return nil, fmt.Errorf("database error regenerating API key: %w", err)
		}
		customLog.Warnf("Storage: Failed to regenerate API key %s: %v", keyID, err)
		return nil, fmt.Errorf("database error regenerating API key: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed confirming key regeneration: %w", err)
	}
	if rowsAffected == 0 {
		return nil, storage.ErrAPIKeyNotFound
	}

	query := `SELECT id, user_id, database_id, name, is_active, created_at FROM api_keys WHERE id = ?`
	var key domain.APIKey
	if err := s.db.QueryRowContext(ctx, query, keyID).Scan(&key.ID, &key.UserID, &key.DatabaseID, &key.Name, &key.IsActive, &key.CreatedAt); err != nil {
		return nil, fmt.Errorf("database error reading regenerated key: %w", err)
	}
	key.KeyValue = secret
	return &key, nil
}

// SetAPIKeyActive toggles the active flag without touching the secret.
func (s *Store) SetAPIKeyActive(ctx context.Context, userID, keyID string, active bool) error {
	updateSQL := `UPDATE api_keys SET is_active = ? WHERE id = ? AND user_id = ?`
	result, err := s.db.ExecContext(ctx, updateSQL, active, keyID, userID)
	if err != nil {
		customLog.Warnf("Storage: Failed to toggle API key %s: %v", keyID, err)
		return fmt.Errorf("database error toggling API key: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming key toggle: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrAPIKeyNotFound
	}
	return nil
}

// DeleteAPIKey removes a key immediately. There is no undo.
func (s *Store) DeleteAPIKey(ctx context.Context, userID, keyID string) error {
	deleteSQL := `DELETE FROM api_keys WHERE id = ? AND user_id = ?`
	result, err := s.db.ExecContext(ctx, deleteSQL, keyID, userID)
	if err != nil {
		customLog.Warnf("Storage: Failed to delete API key %s: %v", keyID, err)
		return fmt.Errorf("database error deleting API key: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed confirming key deletion: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrAPIKeyNotFound
	}
	return nil
}

// maskSecret keeps the prefix and last four characters so a key remains
// recognizable in listings without exposing the secret.
func maskSecret(secret string) string {
	if len(secret) <= 12 {
		return "****"
	}
	return secret[:8] + "..." + secret[len(secret)-4:]
}
