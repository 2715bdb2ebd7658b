package docstore

import (
	"strings"
	"time"
)

// TimeLayout is the fixed width, lexically ordered layout used where a
// backend stores times as text.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Lookup resolves a dotted path inside doc.
func Lookup(doc Document, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case Document:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// ToFloat64 converts any Go numeric type.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// ToTime accepts time.Time or a string in TimeLayout or RFC3339.
func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		if ts, err := time.Parse(TimeLayout, t); err == nil {
			return ts.UTC(), true
		}
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// Compare orders two scalars of the same family: numbers, strings, times or
// bools. ok is false when they are not comparable.
func Compare(a, b any) (int, bool) {
	if af, ok := ToFloat64(a); ok {
		bf, ok := ToFloat64(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}

	if at, ok := a.(time.Time); ok {
		bt, ok := ToTime(b)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			if bt, isTime := b.(time.Time); isTime {
				if at, ok := ToTime(av); ok {
					return at.Compare(bt), true
				}
			}
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	}

	return 0, false
}

// Equal reports whether a and b are the same scalar.
func Equal(a, b any) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

// String reads a string field.
func String(doc Document, key string) string {
	v, _ := Lookup(doc, key)
	s, _ := v.(string)
	return s
}

// Float reads a numeric field.
func Float(doc Document, key string) (float64, bool) {
	v, ok := Lookup(doc, key)
	if !ok {
		return 0, false
	}
	return ToFloat64(v)
}

// Bool reads a bool field.
func Bool(doc Document, key string) bool {
	v, _ := Lookup(doc, key)
	b, _ := v.(bool)
	return b
}

// Time reads a time field.
func Time(doc Document, key string) (time.Time, bool) {
	v, ok := Lookup(doc, key)
	if !ok {
		return time.Time{}, false
	}
	return ToTime(v)
}

// Strings reads a string array field.
func Strings(doc Document, key string) []string {
	v, _ := Lookup(doc, key)
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Floats reads a numeric array field.
func Floats(doc Document, key string) []float64 {
	v, _ := Lookup(doc, key)
	switch t := v.(type) {
	case []float64:
		return append([]float64(nil), t...)
	case []any:
		out := make([]float64, 0, len(t))
		for _, e := range t {
			if f, ok := ToFloat64(e); ok {
				out = append(out, f)
			}
		}
		return out
	}
	return nil
}

// Sub reads a nested object.
func Sub(doc Document, key string) (Document, bool) {
	v, ok := Lookup(doc, key)
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case Document:
		return t, true
	case map[string]any:
		return Document(t), true
	}
	return nil, false
}
