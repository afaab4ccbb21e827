// api/models/admin_models.go
package models

import "github.com/golang-jwt/jwt/v5"

// --- Management Request Structs ---

// CreateDatabaseRequest defines the body for registering a logical database.
type CreateDatabaseRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ColumnDefinition represents a single column in a table declaration.
type ColumnDefinition struct {
	Name         string  `json:"name" binding:"required"`
	Type         string  `json:"type" binding:"required"` // e.g., "TEXT", "INTEGER", "REAL", "BOOLEAN", "JSON"
	IsNullable   *bool   `json:"is_nullable"`
	DefaultValue *string `json:"default_value"`
}

// CreateTableRequest defines the body for declaring a table with its columns.
type CreateTableRequest struct {
	Name    string             `json:"name" binding:"required"`
	Columns []ColumnDefinition `json:"columns" binding:"required,min=1,dive"`
}

// AddColumnRequest defines the body for the column-add schema migration.
type AddColumnRequest struct {
	Column ColumnDefinition `json:"column" binding:"required"`
}

// CreateAPIKeyRequest defines the body for minting a new key.
type CreateAPIKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

// ToggleAPIKeyRequest defines the body for flipping a key's active flag.
type ToggleAPIKeyRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// --- JWT Claims ---

// CustomClaims carries the identity provider's user id and role alongside
// the registered claims.
type CustomClaims struct {
	UserID string `json:"userID"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
