// Package memstore is an in-process docstore backend used by tests and the
// "memory" store driver.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrazmi/devcamper/infrastructure/docstore"
)

// Database holds a fixed set of collections.
type Database struct {
	collections map[string]*Collection
}

// New creates a database with one collection per schema.
func New(schemas ...docstore.Schema) *Database {
	db := &Database{collections: make(map[string]*Collection, len(schemas))}
	for _, s := range schemas {
		db.collections[s.Collection] = &Collection{
			schema: s,
			byID:   make(map[string]int),
		}
	}
	return db
}

// Collection implements docstore.Database.
func (db *Database) Collection(name string) (docstore.Collection, error) {
	c, ok := db.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", docstore.ErrUnknownCollection, name)
	}
	return c, nil
}

// Ping implements docstore.Database.
func (db *Database) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements docstore.Database.
func (db *Database) Close(ctx context.Context) error {
	return nil
}

// Collection keeps documents in insertion order.
type Collection struct {
	mu     sync.RWMutex
	schema docstore.Schema
	docs   []docstore.Document
	byID   map[string]int
}

func (c *Collection) Schema() docstore.Schema {
	return c.schema
}

func (c *Collection) Find(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	var matched []docstore.Document
	for _, d := range c.docs {
		if docstore.Match(d, q.Filter) {
			matched = append(matched, d)
		}
	}
	c.mu.RUnlock()

	docstore.SortDocuments(matched, q.Sort)

	if q.Skip > 0 {
		if q.Skip >= int64(len(matched)) {
			return []docstore.Document{}, nil
		}
		matched = matched[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < int64(len(matched)) {
		matched = matched[:q.Limit]
	}

	out := make([]docstore.Document, len(matched))
	for i, d := range matched {
		out[i] = docstore.Project(d, q.Projection)
	}
	return out, nil
}

func (c *Collection) Count(ctx context.Context, filter []docstore.Condition) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int64
	for _, d := range c.docs {
		if docstore.Match(d, filter) {
			n++
		}
	}
	return n, nil
}

func (c *Collection) Insert(ctx context.Context, doc docstore.Document) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc = docstore.PrepareInsert(doc)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[doc.ID()]; ok {
		return nil, fmt.Errorf("%w: id %s", docstore.ErrDuplicate, doc.ID())
	}
	if err := c.checkUnique(doc, ""); err != nil {
		return nil, err
	}

	c.byID[doc.ID()] = len(c.docs)
	c.docs = append(c.docs, doc)
	return doc.Clone(), nil
}

func (c *Collection) FindByID(ctx context.Context, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return c.docs[i].Clone(), nil
}

func (c *Collection) UpdateByID(ctx context.Context, id string, patch docstore.Document) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.byID[id]
	if !ok {
		return nil, docstore.ErrNotFound
	}

	updated := c.docs[i].Clone()
	for k, v := range patch {
		if k == docstore.KeyID {
			continue
		}
		if v == nil {
			delete(updated, k)
			continue
		}
		updated[k] = v
	}
	updated = updated.Clone()

	if err := c.checkUnique(updated, id); err != nil {
		return nil, err
	}

	c.docs[i] = updated
	return updated.Clone(), nil
}

func (c *Collection) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[id]; !ok {
		return docstore.ErrNotFound
	}
	c.removeWhere(func(d docstore.Document) bool { return d.ID() == id })
	return nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter []docstore.Condition) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.removeWhere(func(d docstore.Document) bool { return docstore.Match(d, filter) }), nil
}

// EnsureIndexes is a no-op; uniqueness is checked on every write.
func (c *Collection) EnsureIndexes(ctx context.Context) error {
	return nil
}

func (c *Collection) removeWhere(drop func(docstore.Document) bool) int64 {
	kept := c.docs[:0]
	var removed int64
	for _, d := range c.docs {
		if drop(d) {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	for i := len(kept); i < len(c.docs); i++ {
		c.docs[i] = nil
	}
	c.docs = kept

	c.byID = make(map[string]int, len(c.docs))
	for i, d := range c.docs {
		c.byID[d.ID()] = i
	}
	return removed
}

func (c *Collection) checkUnique(doc docstore.Document, selfID string) error {
	for _, field := range c.schema.Unique {
		v, ok := docstore.Lookup(doc, field)
		if !ok || v == nil {
			continue
		}
		for _, other := range c.docs {
			if other.ID() == selfID {
				continue
			}
			ov, ok := docstore.Lookup(other, field)
			if ok && docstore.Equal(v, ov) {
				return fmt.Errorf("%w: %s %v", docstore.ErrDuplicate, field, v)
			}
		}
	}
	return nil
}
