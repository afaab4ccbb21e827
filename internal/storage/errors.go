// internal/storage/errors.go
package storage

import "errors"

// Sentinel errors shared by every backend. Handlers and middleware match on
// these with errors.Is; backends wrap driver errors around them.
var (
	ErrInvalidKey       = errors.New("invalid or inactive API key")
	ErrDatabaseNotFound = errors.New("database not found or not registered for this user")
	ErrDatabaseExists   = errors.New("database name already exists for this user")
	ErrTableNotFound    = errors.New("table not found")
	ErrTableExists      = errors.New("table name already exists in this database")
	ErrColumnExists     = errors.New("column name already exists in this table")
	ErrRowNotFound      = errors.New("row not found")
	ErrAPIKeyNotFound   = errors.New("api key not found")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrForbidden        = errors.New("resource does not belong to this user")
)
