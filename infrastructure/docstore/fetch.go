package docstore

import (
	"context"
	"fmt"

	"github.com/jrazmi/devcamper/core/scaffolding/fop"
)

// CountMode selects what FetchResult.TotalCount counts.
type CountMode int

const (
	// CountAll counts every document in the collection, ignoring the filter.
	CountAll CountMode = iota
	// CountFiltered counts only documents matching the filter.
	CountFiltered
)

// ParseCountMode maps "all" and "filtered"; anything else is CountAll.
func ParseCountMode(s string) CountMode {
	if s == "filtered" {
		return CountFiltered
	}
	return CountAll
}

func (m CountMode) String() string {
	if m == CountFiltered {
		return "filtered"
	}
	return "all"
}

// FetchOptions tunes Fetch.
type FetchOptions struct {
	CountMode CountMode
}

// FetchResult is one page of a collection plus the count used for
// pagination.
type FetchResult struct {
	Items      []Document
	TotalCount int64
}

// Fetch runs a compiled list query against collection: filter, sort,
// project and window it, eager-load the requested relations and count.
// Every failure is a *FetchError.
func Fetch(ctx context.Context, db Database, collection string, d fop.QueryDescriptor, opts FetchOptions) (FetchResult, error) {
	fail := func(err error) (FetchResult, error) {
		return FetchResult{}, &FetchError{Collection: collection, Err: err}
	}

	coll, err := db.Collection(collection)
	if err != nil {
		return fail(err)
	}
	schema := coll.Schema()

	q, err := BuildQuery(schema, d)
	if err != nil {
		return fail(err)
	}

	items, err := coll.Find(ctx, q)
	if err != nil {
		return fail(err)
	}
	for i := range items {
		items[i] = schema.StripHidden(items[i], q.Projection)
	}

	for _, rel := range d.Relations {
		if err := populate(ctx, db, schema, items, rel); err != nil {
			return fail(err)
		}
	}

	var countFilter []Condition
	if opts.CountMode == CountFiltered {
		countFilter = q.Filter
	}
	total, err := coll.Count(ctx, countFilter)
	if err != nil {
		return fail(err)
	}

	if items == nil {
		items = []Document{}
	}
	return FetchResult{Items: items, TotalCount: total}, nil
}

// Populate eager-loads one relation into docs in place.
func Populate(ctx context.Context, db Database, collection string, docs []Document, rel fop.Relation) error {
	coll, err := db.Collection(collection)
	if err != nil {
		return err
	}
	return populate(ctx, db, coll.Schema(), docs, rel)
}

func populate(ctx context.Context, db Database, schema Schema, docs []Document, want fop.Relation) error {
	rel, ok := schema.Relation(want.Name)
	if !ok {
		return invalidf("unknown relation %q on %s", want.Name, schema.Collection)
	}
	if len(docs) == 0 {
		return nil
	}

	related, err := db.Collection(rel.Collection)
	if err != nil {
		return fmt.Errorf("relation %s: %w", rel.Name, err)
	}
	relSchema := related.Schema()

	var keys []any
	seen := make(map[string]bool)
	for _, doc := range docs {
		v, ok := Lookup(doc, rel.LocalField)
		if !ok {
			continue
		}
		key, ok := v.(string)
		if !ok || key == "" || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}

	byKey := make(map[string][]Document)
	if len(keys) > 0 {
		var projection []string
		if len(want.Fields) > 0 {
			for _, f := range want.Fields {
				if _, err := relSchema.readable(f); err != nil {
					return err
				}
			}
			projection = append([]string{KeyID, rel.ForeignField}, want.Fields...)
		}

		found, err := related.Find(ctx, Query{
			Filter:     []Condition{{Field: rel.ForeignField, Op: OpIn, Value: keys}},
			Sort:       []Sort{{Field: KeyCreatedAt}},
			Projection: projection,
		})
		if err != nil {
			return fmt.Errorf("relation %s: %w", rel.Name, err)
		}

		for _, f := range found {
			v, _ := Lookup(f, rel.ForeignField)
			key, _ := v.(string)
			f = relSchema.StripHidden(f, projection)
			if len(want.Fields) > 0 && rel.ForeignField != KeyID && !containsString(want.Fields, rel.ForeignField) {
				delete(f, rel.ForeignField)
			}
			byKey[key] = append(byKey[key], f)
		}
	}

	for _, doc := range docs {
		v, ok := Lookup(doc, rel.LocalField)
		key, _ := v.(string)
		matches := byKey[key]

		if rel.Many {
			list := make([]Document, 0, len(matches))
			for _, m := range matches {
				list = append(list, m.Clone())
			}
			doc[rel.Name] = list
			continue
		}
		if !ok {
			continue
		}
		if len(matches) == 0 {
			doc[rel.Name] = nil
			continue
		}
		doc[rel.Name] = matches[0].Clone()
	}

	return nil
}
