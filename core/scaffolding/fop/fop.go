// Package fop compiles list querystrings into filter, order and page
// descriptors and computes page navigation for list responses.
package fop

import "slices"

// Reserved querystring keys that shape a list query instead of filtering it.
const (
	KeySelect = "select"
	KeySort   = "sort"
	KeyPage   = "page"
	KeyLimit  = "limit"
)

// Defaults applied when the querystring omits or garbles a shaping key.
const (
	DefaultPage      = 1
	DefaultLimit     = 100
	DefaultSortField = "createdAt"
)

// MaxOffset bounds the window so (page-1)*limit never overflows. Pages past
// it are clamped and come back empty.
const MaxOffset = 1<<31 - 1

var reservedKeys = []string{KeySelect, KeySort, KeyPage, KeyLimit}

// IsReserved reports whether key (with any bracket suffix removed) is a
// shaping key.
func IsReserved(key string) bool {
	return slices.Contains(reservedKeys, baseName(key))
}

// Operator is a filter comparison.
type Operator string

const (
	OpEquals             Operator = "eq"
	OpGreaterThan        Operator = "gt"
	OpGreaterThanOrEqual Operator = "gte"
	OpLessThan           Operator = "lt"
	OpLessThanOrEqual    Operator = "lte"
	OpIn                 Operator = "in"
)

// operatorRank orders comparisons on the same field deterministically.
var operatorRank = map[Operator]int{
	OpEquals:             0,
	OpGreaterThan:        1,
	OpGreaterThanOrEqual: 2,
	OpLessThan:           3,
	OpLessThanOrEqual:    4,
	OpIn:                 5,
}

// ParseOperator maps a bracket suffix token to its operator. Equality has no
// token.
func ParseOperator(token string) (Operator, bool) {
	switch Operator(token) {
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual, OpIn:
		return Operator(token), true
	}
	return "", false
}

// Comparison binds an operator to its textual operand. Equality with more
// than one operand matches any of them; range operators carry exactly one.
type Comparison struct {
	Op      Operator
	Operand []string
}

// Filter maps a field to its comparisons, at most one per operator.
type Filter map[string][]Comparison

// Direction is a sort direction.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// SortKey orders results by one field.
type SortKey struct {
	Field     string
	Direction Direction
}

// Relation names a reference to eager-load and, optionally, the fields of
// the related record to keep.
type Relation struct {
	Name   string
	Fields []string
}

// Window is the slice of the ordered result set to return.
type Window struct {
	Offset int
	Limit  int
}

// QueryDescriptor is the compiled form of a list query. Page and Limit are
// always >= 1 and Window is derived from them.
type QueryDescriptor struct {
	Filter     Filter
	SortKeys   []SortKey
	Projection []string
	Relations  []Relation
	Page       int
	Limit      int
	Window     Window
}

// FilterFields returns the filtered field names in sorted order.
func (d QueryDescriptor) FilterFields() []string {
	fields := make([]string, 0, len(d.Filter))
	for f := range d.Filter {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}

// WithRelations returns a copy of d that eager-loads relations.
func (d QueryDescriptor) WithRelations(relations ...Relation) QueryDescriptor {
	d.Relations = append([]Relation(nil), relations...)
	return d
}
