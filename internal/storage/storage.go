// internal/storage/storage.go
//
// One persistence contract, two interchangeable backends: a local
// document-file backend (sqlite) and a networked relational backend
// (postgres). The gateway depends only on these interfaces.
package storage

import (
	"context"

	"github.com/nimbusdb/nimbus-backend/internal/core"
	"github.com/nimbusdb/nimbus-backend/internal/domain"
)

// KeyStore holds API-key to (tenant, target-database, active-flag) mappings.
type KeyStore interface {
	// Authenticate resolves an opaque secret to its key identity by exact
	// equality against the stored secret value. Unknown and inactive keys
	// both fail with ErrInvalidKey; callers cannot tell the cases apart.
	Authenticate(ctx context.Context, secret string) (*domain.KeyIdentity, error)

	// TouchLastUsed stamps last_used_at. The gateway calls it asynchronously
	// after the action completes; it never blocks a response.
	TouchLastUsed(ctx context.Context, keyID string) error

	CreateAPIKey(ctx context.Context, userID, databaseID, name string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error)
	// RegenerateAPIKey atomically replaces the secret value. The old secret
	// is invalidated immediately and irreversibly.
	RegenerateAPIKey(ctx context.Context, userID, keyID string) (*domain.APIKey, error)
	SetAPIKeyActive(ctx context.Context, userID, keyID string, active bool) error
	DeleteAPIKey(ctx context.Context, userID, keyID string) error
}

// SchemaStore resolves table metadata within a database. The gateway only
// reads it; the management surface owns mutation.
type SchemaStore interface {
	// ResolveTable maps a table name to its internal id with an exact,
	// case-sensitive match. Fails with ErrTableNotFound on zero matches.
	ResolveTable(ctx context.Context, databaseID, tableName string) (string, error)

	CreateDatabase(ctx context.Context, userID, name, description string) (*domain.Database, error)
	ListDatabases(ctx context.Context, userID string) ([]domain.Database, error)
	FindDatabase(ctx context.Context, userID, databaseID string) (*domain.Database, error)
	DeleteDatabase(ctx context.Context, userID, databaseID string) error

	CreateTable(ctx context.Context, databaseID, name string, columns []domain.Column) (*domain.Table, error)
	ListTables(ctx context.Context, databaseID string) ([]domain.Table, error)
	DeleteTable(ctx context.Context, databaseID, tableID string) error

	// ListColumns returns declared column metadata ordered by position.
	ListColumns(ctx context.Context, tableID string) ([]domain.Column, error)
	AddColumn(ctx context.Context, tableID string, column domain.Column) (*domain.Column, error)
}

// RowStore persists rows as semi-structured documents keyed by table id.
// Every operation is scoped to a single already-resolved table.
type RowStore interface {
	// SelectRows applies ANDed equality filters against the stored
	// documents, ordered by creation time ascending and capped at
	// core.MaxSelectRows.
	SelectRows(ctx context.Context, tableID string, filters []core.Filter) ([]domain.Row, error)

	InsertRow(ctx context.Context, tableID string, data domain.Document) (*domain.Row, error)

	// UpdateRow shallow-merges patch onto the existing document and persists
	// the merged result in its entirety. Fails with ErrRowNotFound when the
	// row does not exist under the table.
	UpdateRow(ctx context.Context, tableID, rowID string, patch domain.Document) (*domain.Row, error)

	// DeleteRow removes the row. Not idempotent: a second call fails with
	// ErrRowNotFound.
	DeleteRow(ctx context.Context, tableID, rowID string) error
}

// AuditStore records one entry per completed gateway call.
type AuditStore interface {
	InsertQueryLog(ctx context.Context, entry *domain.QueryLogEntry) error
	ListQueryLogs(ctx context.Context, userID, databaseID string, limit int) ([]domain.QueryLogEntry, error)
	// ClearQueryLogs bulk-deletes entries; admin only, enforced by the caller.
	ClearQueryLogs(ctx context.Context, databaseID string) (int64, error)
}

// Store is the full persistence contract backing the gateway.
type Store interface {
	KeyStore
	SchemaStore
	RowStore
	AuditStore

	Close() error
}
