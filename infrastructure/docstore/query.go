package docstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jrazmi/devcamper/core/scaffolding/fop"
)

var rangeOps = map[fop.Operator]Op{
	fop.OpGreaterThan:        OpGt,
	fop.OpGreaterThanOrEqual: OpGte,
	fop.OpLessThan:           OpLt,
	fop.OpLessThanOrEqual:    OpLte,
}

// BuildQuery checks a compiled descriptor against schema and coerces its
// textual operands into typed conditions.
func BuildQuery(s Schema, d fop.QueryDescriptor) (Query, error) {
	q := Query{
		Skip:  int64(d.Window.Offset),
		Limit: int64(d.Window.Limit),
	}

	for _, field := range d.FilterFields() {
		kind, err := s.readable(field)
		if err != nil {
			return Query{}, err
		}
		for _, c := range d.Filter[field] {
			cond, err := condition(field, kind, c)
			if err != nil {
				return Query{}, err
			}
			q.Filter = append(q.Filter, cond)
		}
	}

	for _, k := range d.SortKeys {
		kind, err := s.readable(k.Field)
		if err != nil {
			return Query{}, err
		}
		switch kind {
		case KindStrings, KindObject, KindPoint:
			return Query{}, invalidf("cannot sort by %s field %q", kind, k.Field)
		}
		q.Sort = append(q.Sort, Sort{Field: k.Field, Desc: k.Direction == fop.Descending})
	}

	for _, field := range d.Projection {
		if _, err := s.readable(field); err != nil {
			return Query{}, err
		}
		q.Projection = append(q.Projection, field)
	}
	if len(q.Projection) > 0 && !containsString(q.Projection, KeyID) {
		q.Projection = append([]string{KeyID}, q.Projection...)
	}

	return q, nil
}

func (s Schema) readable(field string) (Kind, error) {
	kind, ok := s.Kind(field)
	if !ok || s.IsHidden(field) {
		return 0, invalidf("unknown field %q in %s", field, s.Collection)
	}
	return kind, nil
}

func condition(field string, kind Kind, c fop.Comparison) (Condition, error) {
	switch c.Op {
	case fop.OpEquals:
		if kind == KindObject || kind == KindPoint {
			return Condition{}, invalidf("cannot filter on %s field %q", kind, field)
		}
		values, err := coerceAll(field, kind, c.Operand)
		if err != nil {
			return Condition{}, err
		}
		if len(values) == 1 {
			return Condition{Field: field, Op: OpEq, Value: values[0]}, nil
		}
		return Condition{Field: field, Op: OpIn, Value: values}, nil

	case fop.OpIn:
		if kind == KindObject || kind == KindPoint {
			return Condition{}, invalidf("cannot filter on %s field %q", kind, field)
		}
		values, err := coerceAll(field, kind, c.Operand)
		if err != nil {
			return Condition{}, err
		}
		return Condition{Field: field, Op: OpIn, Value: values}, nil
	}

	op, ok := rangeOps[c.Op]
	if !ok {
		return Condition{}, invalidf("unsupported operator %q on %q", c.Op, field)
	}
	switch kind {
	case KindBool, KindStrings, KindObject, KindPoint:
		return Condition{}, invalidf("operator %q not supported on %s field %q", c.Op, kind, field)
	}
	if len(c.Operand) != 1 {
		return Condition{}, invalidf("operator %q on %q needs exactly one operand", c.Op, field)
	}
	v, err := Coerce(kind, c.Operand[0])
	if err != nil {
		return Condition{}, fmt.Errorf("%s: %w", field, err)
	}
	return Condition{Field: field, Op: op, Value: v}, nil
}

func coerceAll(field string, kind Kind, raw []string) ([]any, error) {
	out := make([]any, 0, len(raw))
	for _, r := range raw {
		v, err := Coerce(kind, r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Coerce parses a textual operand as kind. Array fields match on elements,
// so their operands are strings.
func Coerce(kind Kind, raw string) (any, error) {
	switch kind {
	case KindString, KindID, KindStrings:
		return raw, nil
	case KindNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, invalidf("%q is not a number", raw)
		}
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, invalidf("%q is not a boolean", raw)
		}
		return b, nil
	case KindTime:
		raw = strings.TrimSpace(raw)
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t.UTC(), nil
		}
		if t, err := time.Parse(time.DateOnly, raw); err == nil {
			return t.UTC(), nil
		}
		return nil, invalidf("%q is not a time", raw)
	}
	return nil, invalidf("kind %s is not filterable", kind)
}
