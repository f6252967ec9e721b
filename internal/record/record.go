// Package record holds the row model shared by the grid, filters and actions:
// a loosely typed Record as delivered by the backend and its normalized ID.
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Record is one backend row: field name to decoded JSON value.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge copies fields into the record in place, leaving other fields alone.
func (r Record) Merge(fields map[string]any) {
	for k, v := range fields {
		r[k] = v
	}
}

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup resolves a dot-separated path ("customer.name") through nested maps.
func (r Record) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the stringified value at path, or "" when absent.
func (r Record) String(path string) string {
	v, _ := r.Lookup(path)
	return Stringify(v)
}

// ID returns the normalized identifier stored under key.
func (r Record) ID(key string) ID {
	return NormalizeID(r[key])
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return m, true
	}
	return nil, false
}

// Stringify renders a field value the way it is shown and compared in the
// grid: nil is empty, integral numbers drop the fraction.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case ID:
		return x.String()
	}
	return fmt.Sprint(v)
}

// IsBlank reports whether a value counts as "no value" for filtering and
// hierarchy: nil or an empty string representation.
func IsBlank(v any) bool {
	return Stringify(v) == ""
}

// Float coerces numbers and numeric strings to float64.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Fold returns s case-folded for case-insensitive comparison.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}
