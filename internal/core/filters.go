// internal/core/filters.go
package core

import (
	"fmt"
	"sort"
)

// MaxSelectRows caps every select call. There is no continuation cursor; the
// first MaxSelectRows rows by creation order are returned.
const MaxSelectRows = 100

// NormalizeFilters validates a select filter set and returns it with keys in
// a deterministic order. Filters are equality-only: each entry matches rows
// whose document value, rendered as a string, equals the given value exactly.
// A filter on a field no row carries simply matches nothing; only malformed
// keys are rejected.
func NormalizeFilters(filters map[string]string) ([]Filter, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	normalized := make([]Filter, 0, len(filters))
	for key, value := range filters {
		if !IsValidIdentifier(key) {
			return nil, fmt.Errorf("invalid filter key '%s'", key)
		}
		normalized = append(normalized, Filter{Key: key, Value: value})
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].Key < normalized[j].Key })
	return normalized, nil
}

// Filter is a single equality condition against a document field. Multiple
// filters are ANDed.
type Filter struct {
	Key   string
	Value string
}

// MatchesDocument reports whether every filter holds against the document,
// comparing the stored value's string form for exact equality. Missing
// fields never match.
func MatchesDocument(filters []Filter, doc map[string]any) bool {
	for _, f := range filters {
		val, ok := doc[f.Key]
		if !ok {
			return false
		}
		if StringifyValue(val) != f.Value {
			return false
		}
	}
	return true
}

// StringifyValue renders a stored document value the way the wire filters
// see it: booleans as true/false, whole numbers without a fraction, text as
// itself.
func StringifyValue(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
