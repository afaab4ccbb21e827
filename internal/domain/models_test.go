// internal/domain/models_test.go
package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentMerge(t *testing.T) {
	t.Run("Patch Keys Win, Others Survive Untouched", func(t *testing.T) {
		existing := Document{"name": "Ada", "score": 10.0, "tags": []any{"x"}}
		patch := Document{"score": 20.0}

		merged := existing.Merge(patch)

		assert.Equal(t, "Ada", merged["name"])
		assert.Equal(t, 20.0, merged["score"])
		assert.Equal(t, []any{"x"}, merged["tags"])
	})

	t.Run("Shallow Merge Replaces Nested Values Wholesale", func(t *testing.T) {
		existing := Document{"prefs": map[string]any{"theme": "dark", "lang": "en"}}
		patch := Document{"prefs": map[string]any{"theme": "light"}}

		merged := existing.Merge(patch)

		prefs := merged["prefs"].(map[string]any)
		assert.Equal(t, "light", prefs["theme"])
		_, hasLang := prefs["lang"]
		assert.False(t, hasLang, "nested keys must not be deep-merged")
	})

	t.Run("Originals Are Not Mutated", func(t *testing.T) {
		existing := Document{"a": 1}
		patch := Document{"a": 2, "b": 3}

		_ = existing.Merge(patch)

		assert.Equal(t, 1, existing["a"])
		assert.Equal(t, Document{"a": 2, "b": 3}, patch)
	})
}

func TestRowFlatten(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	row := Row{
		ID:        "row-1",
		TableID:   "table-1",
		Data:      Document{"name": "Ada"},
		CreatedAt: created,
		UpdatedAt: updated,
	}

	doc := row.Flatten()

	assert.Equal(t, "Ada", doc["name"])
	assert.Equal(t, "row-1", doc["id"])
	assert.Equal(t, created, doc["_created_at"])
	assert.Equal(t, updated, doc["_updated_at"])
	assert.NotContains(t, doc, "table_id")
}
