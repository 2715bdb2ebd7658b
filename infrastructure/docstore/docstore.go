// Package docstore defines the document collection contract the repositories
// and the list fetcher are written against, with MongoDB, PostgreSQL (JSONB)
// and in-memory implementations in the sub packages.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Well known document keys.
const (
	KeyID        = "id"
	KeyCreatedAt = "createdAt"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicate         = errors.New("duplicate key")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrInvalidQuery      = errors.New("invalid query")
)

// Document is a stored record. Nested objects are Documents, arrays []any.
type Document map[string]any

// ID returns the document id.
func (d Document) ID() string {
	s, _ := d[KeyID].(string)
	return s
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return t.Clone()
	case map[string]any:
		return Document(t).Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []Document:
		out := make([]Document, len(t))
		for i, e := range t {
			out[i] = e.Clone()
		}
		return out
	default:
		return v
	}
}

// Op is a store level comparison.
type Op string

const (
	OpEq     Op = "eq"
	OpGt     Op = "gt"
	OpGte    Op = "gte"
	OpLt     Op = "lt"
	OpLte    Op = "lte"
	OpIn     Op = "in"
	OpWithin Op = "within"
)

// Circle is a spherical cap for OpWithin; Radius is in radians.
type Circle struct {
	Lng    float64
	Lat    float64
	Radius float64
}

// Condition is a typed filter clause. Value is a coerced scalar, []any for
// OpIn and Circle for OpWithin.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Sort orders by one field.
type Sort struct {
	Field string
	Desc  bool
}

// Query is what a Collection executes. Limit 0 means unbounded.
type Query struct {
	Filter     []Condition
	Sort       []Sort
	Projection []string
	Skip       int64
	Limit      int64
}

// Collection is a named set of documents.
type Collection interface {
	Schema() Schema
	Find(ctx context.Context, q Query) ([]Document, error)
	Count(ctx context.Context, filter []Condition) (int64, error)
	Insert(ctx context.Context, doc Document) (Document, error)
	FindByID(ctx context.Context, id string) (Document, error)
	// UpdateByID merges patch into the document; nil values unset keys.
	UpdateByID(ctx context.Context, id string, patch Document) (Document, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, filter []Condition) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

// Database resolves collections by name.
type Database interface {
	Collection(name string) (Collection, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewID returns a fresh document id.
func NewID() string {
	return uuid.NewString()
}

// Now is the creation timestamp; millisecond precision matches what every
// backend round trips.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// PrepareInsert fills id and createdAt when absent.
func PrepareInsert(doc Document) Document {
	out := doc.Clone()
	if out.ID() == "" {
		out[KeyID] = NewID()
	}
	if _, ok := out[KeyCreatedAt]; !ok {
		out[KeyCreatedAt] = Now()
	}
	return out
}

// FetchError reports a failed list fetch, either an invalid query or a
// store failure.
type FetchError struct {
	Collection string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Collection, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Invalid reports whether the query itself was at fault.
func (e *FetchError) Invalid() bool {
	return errors.Is(e.Err, ErrInvalidQuery)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
