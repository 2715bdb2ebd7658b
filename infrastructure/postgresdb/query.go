package postgresdb

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Set of directions for data ordering.
const (
	ASC  = "ASC"
	DESC = "DESC"
)

// Where accumulates AND-ed predicates for a query under construction.
type Where struct {
	parts []string
}

// Add appends a predicate.
func (w *Where) Add(predicate string) {
	w.parts = append(w.parts, predicate)
}

// Write emits the WHERE clause, if any, into buf.
func (w *Where) Write(buf *bytes.Buffer) {
	if len(w.parts) == 0 {
		return
	}
	buf.WriteString(" WHERE ")
	buf.WriteString(strings.Join(w.parts, " AND "))
}

// OrderTerm is one ORDER BY expression.
type OrderTerm struct {
	Expr      string
	Direction string
}

// AddOrderByClause adds ORDER BY to buf. Missing values sort first in
// ascending order and last in descending order. pkExpr, when set, breaks
// ties.
func AddOrderByClause(buf *bytes.Buffer, terms []OrderTerm, pkExpr string) error {
	if len(terms) == 0 && pkExpr == "" {
		return nil
	}

	parts := make([]string, 0, len(terms)+1)
	for _, t := range terms {
		switch t.Direction {
		case ASC:
			parts = append(parts, t.Expr+" ASC NULLS FIRST")
		case DESC:
			parts = append(parts, t.Expr+" DESC NULLS LAST")
		default:
			return fmt.Errorf("invalid order direction: %s", t.Direction)
		}
	}
	if pkExpr != "" {
		parts = append(parts, pkExpr+" ASC")
	}

	buf.WriteString(" ORDER BY ")
	buf.WriteString(strings.Join(parts, ", "))
	return nil
}

// AddLimitOffsetClause adds LIMIT and OFFSET; a zero limit means no limit.
func AddLimitOffsetClause(buf *bytes.Buffer, data pgx.NamedArgs, limit, offset int64) {
	if limit > 0 {
		buf.WriteString(" LIMIT @limit")
		data["limit"] = limit
	}
	if offset > 0 {
		buf.WriteString(" OFFSET @offset")
		data["offset"] = offset
	}
}
