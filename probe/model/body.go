package model

import (
	"encoding/json"
	"maps"
	"slices"
)

// Body is a JSON request body keyed by field name.
type Body map[string]any

// Clone deep-copies b. Nested objects and arrays are copied so overrides on the
// clone never leak into the original.
func (b Body) Clone() Body {
	if b == nil {
		return Body{}
	}
	out := make(Body, len(b))
	for k, v := range b {
		out[k] = cloneValue(v)
	}
	return out
}

// With returns a clone of b with overrides applied on top.
func (b Body) With(overrides map[string]any) Body {
	out := b.Clone()
	for k, v := range overrides {
		out[k] = cloneValue(v)
	}
	return out
}

// Keys returns the field names in sorted order.
func (b Body) Keys() []string {
	return slices.Sorted(maps.Keys(b))
}

// Covers reports whether b holds every key of other.
func (b Body) Covers(other Body) bool {
	for k := range other {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case Body:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// NormalizeNumbers converts json.Number values decoded with UseNumber into
// int64 when integral and float64 otherwise. Maps and slices are converted in place.
func NormalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = NormalizeNumbers(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = NormalizeNumbers(inner)
		}
		return t
	default:
		return v
	}
}
