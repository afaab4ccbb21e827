// internal/domain/models.go
package domain

import "time"

// Document is one row's user-supplied fields: an open, flat mapping from
// column name to scalar/JSON value. Column membership is not enforced at
// write time; declared columns are advisory unless schema validation is
// switched on.
type Document map[string]any

// Merge overlays the top-level keys of patch onto d and returns the result
// as a new Document. Keys absent from patch keep their existing values.
// This is NOT a JSON-patch style deep merge; nested structures are replaced
// wholesale when their top-level key appears in patch.
func (d Document) Merge(patch Document) Document {
	merged := make(Document, len(d)+len(patch))
	for k, v := range d {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// Database is a tenant's logical namespace. It owns zero or more tables.
type Database struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Tables      int       `json:"tables"`
	CreatedAt   time.Time `json:"created_at"`
}

// Table is an ad-hoc table definition inside a database. Name is unique
// within its database.
type Table struct {
	ID         string    `json:"id"`
	DatabaseID string    `json:"database_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Column is declarative metadata for a table column. Position defines
// display/insert order only.
type Column struct {
	ID           string    `json:"id"`
	TableID      string    `json:"table_id"`
	Name         string    `json:"name"`
	DataType     string    `json:"data_type"`
	IsNullable   bool      `json:"is_nullable"`
	DefaultValue *string   `json:"default_value,omitempty"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}

// Row is one stored document under a table. ID is immutable and globally
// unique; TableID never changes after creation.
type Row struct {
	ID        string    `json:"id"`
	TableID   string    `json:"table_id"`
	Data      Document  `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Flatten returns the row as a single document with the row id and the
// timestamps injected as sibling keys alongside the stored fields.
func (r *Row) Flatten() Document {
	doc := make(Document, len(r.Data)+3)
	for k, v := range r.Data {
		doc[k] = v
	}
	doc["id"] = r.ID
	doc["_created_at"] = r.CreatedAt
	doc["_updated_at"] = r.UpdatedAt
	return doc
}

// APIKey maps an opaque secret to a (user, database) pairing. The full
// secret is returned exactly once, at creation or regeneration time.
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	DatabaseID string     `json:"database_id"`
	Name       string     `json:"name"`
	KeyValue   string     `json:"key_value,omitempty"`
	IsActive   bool       `json:"is_active"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// KeyIdentity is the result of a successful API key authentication.
type KeyIdentity struct {
	KeyID      string
	UserID     string
	DatabaseID string
}

// QueryLogEntry is one audited gateway call. Entries are append-only; they
// are never mutated, only bulk-cleared by an administrator.
type QueryLogEntry struct {
	ID             string    `json:"id"`
	DatabaseID     string    `json:"database_id"`
	UserID         string    `json:"user_id"`
	Method         string    `json:"method"`
	Endpoint       string    `json:"endpoint"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	RequestBody    Document  `json:"request_body,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
