// internal/core/validation.go
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nimbusdb/nimbus-backend/internal/domain"
)

// Regular expression for valid database/table/column names (alphanumeric + underscore)
var nameValidationRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// AllowedColumnTypes are the declarable column types (uppercase keys and values).
// They are advisory metadata; the row store only checks them when schema
// validation is explicitly enabled.
var AllowedColumnTypes = map[string]string{
	"TEXT":    "TEXT",
	"INTEGER": "INTEGER",
	"REAL":    "REAL",
	"BOOLEAN": "BOOLEAN",
	"JSON":    "JSON",
}

// IsValidIdentifier checks if a string is a valid identifier (e.g., db_name, table_name, column_name)
// Applies basic format and length checks.
func IsValidIdentifier(name string) bool {
	return nameValidationRegex.MatchString(name) && len(name) > 0 && len(name) <= 64
}

// NormalizeAndValidateType checks if a string is an allowed column type, returning the normalized uppercase version.
func NormalizeAndValidateType(colType string) (string, bool) {
	upperType := strings.ToUpper(colType)
	normalizedType, ok := AllowedColumnTypes[upperType]
	return normalizedType, ok
}

// ValidateDocument checks that a payload is a usable flat document: non-empty,
// with no reserved or malformed field names. Values may be any JSON scalar or
// nested structure; nesting below the top level is stored opaquely.
func ValidateDocument(doc domain.Document) error {
	if len(doc) == 0 {
		return fmt.Errorf("document cannot be empty")
	}
	for key := range doc {
		if !IsValidIdentifier(key) {
			return fmt.Errorf("invalid field name '%s'", key)
		}
		if isReservedField(key) {
			return fmt.Errorf("field name '%s' is reserved", key)
		}
	}
	return nil
}

// isReservedField reports whether a field name collides with the keys the
// gateway injects into flattened documents.
func isReservedField(name string) bool {
	switch strings.ToLower(name) {
	case "id", "_created_at", "_updated_at":
		return true
	}
	return false
}

// ValidateAgainstColumns enforces declared column metadata on a payload:
// every field must name a declared column and carry a value compatible with
// its declared type. This is the opt-in strict mode; the default contract is
// schemaless and never calls it.
func ValidateAgainstColumns(doc domain.Document, columns []domain.Column) error {
	types := make(map[string]string, len(columns))
	for _, col := range columns {
		types[strings.ToLower(col.Name)] = strings.ToUpper(col.DataType)
	}

	for key, val := range doc {
		declared, exists := types[strings.ToLower(key)]
		if !exists {
			return fmt.Errorf("column '%s' is not declared for this table", key)
		}
		if val == nil {
			continue
		}
		if !valueMatchesType(val, declared) {
			return fmt.Errorf("invalid value for column '%s': expected %s", key, declared)
		}
	}
	return nil
}

// valueMatchesType checks a decoded JSON value against a declared column type.
// JSON numbers arrive as float64, so INTEGER accepts whole floats.
func valueMatchesType(val any, declaredType string) bool {
	switch declaredType {
	case "INTEGER":
		switch v := val.(type) {
		case float64:
			return v == float64(int64(v))
		case int, int64:
			return true
		}
		return false
	case "REAL":
		switch val.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "TEXT":
		_, ok := val.(string)
		return ok
	case "BOOLEAN":
		switch v := val.(type) {
		case bool:
			return true
		case float64:
			return v == 0 || v == 1
		}
		return false
	case "JSON":
		switch val.(type) {
		case map[string]any, []any:
			return true
		}
		return false
	default:
		return true
	}
}
