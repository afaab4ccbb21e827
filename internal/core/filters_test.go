// internal/core/filters_test.go
package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFilters(t *testing.T) {
	t.Run("Nil And Empty Sets", func(t *testing.T) {
		got, err := NormalizeFilters(nil)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = NormalizeFilters(map[string]string{})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Keys Are Sorted", func(t *testing.T) {
		got, err := NormalizeFilters(map[string]string{"zeta": "1", "alpha": "2", "mid": "3"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "alpha", got[0].Key)
		assert.Equal(t, "mid", got[1].Key)
		assert.Equal(t, "zeta", got[2].Key)
	})

	t.Run("Malformed Key Rejected", func(t *testing.T) {
		_, err := NormalizeFilters(map[string]string{"bad key": "1"})
		assert.ErrorContains(t, err, "invalid filter key")
	})
}

func TestMatchesDocument(t *testing.T) {
	doc := map[string]any{
		"name":   "Ada",
		"age":    36.0,
		"score":  9.5,
		"active": true,
	}

	testCases := []struct {
		name    string
		filters []Filter
		want    bool
	}{
		{"no filters matches everything", nil, true},
		{"string equality", []Filter{{"name", "Ada"}}, true},
		{"string mismatch", []Filter{{"name", "ada"}}, false},
		{"whole number renders without fraction", []Filter{{"age", "36"}}, true},
		{"fractional number", []Filter{{"score", "9.5"}}, true},
		{"boolean as text", []Filter{{"active", "true"}}, true},
		{"anded filters all hold", []Filter{{"name", "Ada"}, {"age", "36"}}, true},
		{"anded filters one fails", []Filter{{"name", "Ada"}, {"age", "99"}}, false},
		{"missing field never matches", []Filter{{"email", ""}}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchesDocument(tc.filters, doc))
		})
	}
}

func TestStringifyValue(t *testing.T) {
	assert.Equal(t, "hello", StringifyValue("hello"))
	assert.Equal(t, "true", StringifyValue(true))
	assert.Equal(t, "false", StringifyValue(false))
	assert.Equal(t, "42", StringifyValue(42.0))
	assert.Equal(t, "-7", StringifyValue(-7.0))
	assert.Equal(t, "3.25", StringifyValue(3.25))
	assert.Equal(t, "", StringifyValue(nil))
}
