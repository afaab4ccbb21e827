// internal/core/validation_test.go
package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nimbusdb/nimbus-backend/internal/domain"
)

func TestIsValidIdentifier(t *testing.T) {
	testCases := []struct {
		name       string
		identifier string
		want       bool
	}{
		{"simple lowercase", "users", true},
		{"with underscore", "user_profiles", true},
		{"with digits", "table2", true},
		{"mixed case", "MyTable", true},
		{"empty", "", false},
		{"space", "my table", false},
		{"hyphen", "my-table", false},
		{"dot", "db.table", false},
		{"sql injection attempt", "users; DROP TABLE users", false},
		{"exactly 64 chars", strings.Repeat("a", 64), true},
		{"65 chars", strings.Repeat("a", 65), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsValidIdentifier(tc.identifier))
		})
	}
}

func TestNormalizeAndValidateType(t *testing.T) {
	testCases := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"TEXT", "TEXT", true},
		{"text", "TEXT", true},
		{"Integer", "INTEGER", true},
		{"real", "REAL", true},
		{"BOOLEAN", "BOOLEAN", true},
		{"json", "JSON", true},
		{"VARCHAR(255)", "", false},
		{"BLOB", "", false},
		{"", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := NormalizeAndValidateType(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidateDocument(t *testing.T) {
	t.Run("Valid Flat Document", func(t *testing.T) {
		err := ValidateDocument(domain.Document{"name": "Ada", "score": 42.0})
		assert.NoError(t, err)
	})

	t.Run("Nested Values Are Allowed", func(t *testing.T) {
		err := ValidateDocument(domain.Document{"prefs": map[string]any{"theme": "dark"}})
		assert.NoError(t, err)
	})

	t.Run("Empty Document", func(t *testing.T) {
		err := ValidateDocument(domain.Document{})
		assert.Error(t, err)
	})

	t.Run("Invalid Field Name", func(t *testing.T) {
		err := ValidateDocument(domain.Document{"bad name": 1})
		assert.ErrorContains(t, err, "invalid field name")
	})

	t.Run("Reserved Field Names", func(t *testing.T) {
		for _, reserved := range []string{"id", "ID", "_created_at", "_updated_at"} {
			err := ValidateDocument(domain.Document{reserved: "x"})
			assert.ErrorContains(t, err, "reserved", "field %q should be rejected", reserved)
		}
	})
}

func TestValidateAgainstColumns(t *testing.T) {
	columns := []domain.Column{
		{Name: "name", DataType: "TEXT"},
		{Name: "age", DataType: "INTEGER"},
		{Name: "score", DataType: "REAL"},
		{Name: "active", DataType: "BOOLEAN"},
		{Name: "prefs", DataType: "JSON"},
	}

	t.Run("Conforming Document", func(t *testing.T) {
		doc := domain.Document{
			"name":   "Ada",
			"age":    36.0, // JSON numbers decode as float64
			"score":  9.75,
			"active": true,
			"prefs":  map[string]any{"theme": "dark"},
		}
		assert.NoError(t, ValidateAgainstColumns(doc, columns))
	})

	t.Run("Undeclared Column", func(t *testing.T) {
		err := ValidateAgainstColumns(domain.Document{"unknown": 1}, columns)
		assert.ErrorContains(t, err, "not declared")
	})

	t.Run("Fractional Value For Integer Column", func(t *testing.T) {
		err := ValidateAgainstColumns(domain.Document{"age": 36.5}, columns)
		assert.ErrorContains(t, err, "expected INTEGER")
	})

	t.Run("String For Boolean Column", func(t *testing.T) {
		err := ValidateAgainstColumns(domain.Document{"active": "yes"}, columns)
		assert.ErrorContains(t, err, "expected BOOLEAN")
	})

	t.Run("Null Passes Any Type", func(t *testing.T) {
		assert.NoError(t, ValidateAgainstColumns(domain.Document{"age": nil}, columns))
	})

	t.Run("Column Match Is Case Insensitive", func(t *testing.T) {
		assert.NoError(t, ValidateAgainstColumns(domain.Document{"Name": "Ada"}, columns))
	})
}
