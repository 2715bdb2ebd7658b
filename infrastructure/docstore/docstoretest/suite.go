// Package docstoretest holds the behaviour every docstore backend must share.
package docstoretest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Items and Notes are the collections the suite runs against.
var (
	Items = docstore.Schema{
		Collection: "items",
		Fields: map[string]docstore.Kind{
			"name":      docstore.KindString,
			"price":     docstore.KindNumber,
			"active":    docstore.KindBool,
			"tags":      docstore.KindStrings,
			"location":  docstore.KindPoint,
			"meta":      docstore.KindObject,
			"meta.city": docstore.KindString,
			"token":     docstore.KindString,
			"createdAt": docstore.KindTime,
		},
		Unique:   []string{"name"},
		Hidden:   []string{"token"},
		GeoField: "location",
	}
	Notes = docstore.Schema{
		Collection: "notes",
		Fields: map[string]docstore.Kind{
			"body":      docstore.KindString,
			"item":      docstore.KindID,
			"createdAt": docstore.KindTime,
		},
	}
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Run exercises db, which must serve Items and Notes, starting empty.
func Run(t *testing.T, db docstore.Database) {
	ctx := context.Background()

	items, err := db.Collection(Items.Collection)
	require.NoError(t, err)
	notes, err := db.Collection(Notes.Collection)
	require.NoError(t, err)
	require.NoError(t, items.EnsureIndexes(ctx))
	require.NoError(t, notes.EnsureIndexes(ctx))

	_, err = db.Collection("missing")
	require.ErrorIs(t, err, docstore.ErrUnknownCollection)

	for i := 1; i <= 6; i++ {
		_, err := items.Insert(ctx, docstore.Document{
			"id":        fmt.Sprintf("item-%d", i),
			"name":      fmt.Sprintf("Item %d", i),
			"price":     float64(i * 10),
			"active":    i%2 == 1,
			"tags":      []any{"all", fmt.Sprintf("mod%d", i%3)},
			"location":  docstore.Point(-71.0+float64(i), 42.0),
			"meta":      docstore.Document{"city": fmt.Sprintf("City %d", i)},
			"token":     "secret",
			"createdAt": epoch.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	t.Run("insert defaults", func(t *testing.T) {
		doc, err := notes.Insert(ctx, docstore.Document{"body": "hello", "item": "item-1"})
		require.NoError(t, err)
		assert.NotEmpty(t, doc.ID())
		created, ok := docstore.Time(doc, docstore.KeyCreatedAt)
		require.True(t, ok)
		assert.WithinDuration(t, time.Now(), created, time.Minute)

		got, err := notes.FindByID(ctx, doc.ID())
		require.NoError(t, err)
		assert.Equal(t, "hello", got["body"])
		stored, ok := docstore.Time(got, docstore.KeyCreatedAt)
		require.True(t, ok)
		assert.True(t, created.Equal(stored))
	})

	t.Run("find by id", func(t *testing.T) {
		got, err := items.FindByID(ctx, "item-3")
		require.NoError(t, err)
		assert.Equal(t, "Item 3", got["name"])
		price, ok := docstore.Float(got, "price")
		assert.True(t, ok)
		assert.Equal(t, 30.0, price)
		assert.Equal(t, []string{"all", "mod0"}, docstore.Strings(got, "tags"))
		assert.Equal(t, "City 3", docstore.String(got, "meta.city"))
		created, ok := docstore.Time(got, docstore.KeyCreatedAt)
		require.True(t, ok)
		assert.True(t, epoch.Add(3*time.Minute).Equal(created))

		_, err = items.FindByID(ctx, "nope")
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("unique", func(t *testing.T) {
		_, err := items.Insert(ctx, docstore.Document{"name": "Item 1"})
		assert.ErrorIs(t, err, docstore.ErrDuplicate)

		_, err = items.UpdateByID(ctx, "item-2", docstore.Document{"name": "Item 1"})
		assert.ErrorIs(t, err, docstore.ErrDuplicate)
	})

	t.Run("find", func(t *testing.T) {
		tests := []struct {
			name string
			q    docstore.Query
			want []string
		}{
			{
				name: "sort desc window",
				q:    docstore.Query{Sort: []docstore.Sort{{Field: "price", Desc: true}}, Skip: 1, Limit: 2},
				want: []string{"item-5", "item-4"},
			},
			{
				name: "range",
				q: docstore.Query{
					Filter: []docstore.Condition{
						{Field: "price", Op: docstore.OpGte, Value: 20.0},
						{Field: "price", Op: docstore.OpLt, Value: 40.0},
					},
					Sort: []docstore.Sort{{Field: "price"}},
				},
				want: []string{"item-2", "item-3"},
			},
			{
				name: "bool and array",
				q: docstore.Query{
					Filter: []docstore.Condition{
						{Field: "active", Op: docstore.OpEq, Value: true},
						{Field: "tags", Op: docstore.OpEq, Value: "mod2"},
					},
					Sort: []docstore.Sort{{Field: "price"}},
				},
				want: []string{"item-5"},
			},
			{
				name: "in",
				q: docstore.Query{
					Filter: []docstore.Condition{{Field: "name", Op: docstore.OpIn, Value: []any{"Item 6", "Item 2", "Nope"}}},
					Sort:   []docstore.Sort{{Field: "name"}},
				},
				want: []string{"item-2", "item-6"},
			},
			{
				name: "time",
				q: docstore.Query{
					Filter: []docstore.Condition{{Field: "createdAt", Op: docstore.OpGt, Value: epoch.Add(4 * time.Minute)}},
					Sort:   []docstore.Sort{{Field: "createdAt", Desc: true}},
				},
				want: []string{"item-6", "item-5"},
			},
			{
				name: "nested",
				q: docstore.Query{
					Filter: []docstore.Condition{{Field: "meta.city", Op: docstore.OpEq, Value: "City 4"}},
				},
				want: []string{"item-4"},
			},
			{
				name: "within",
				q: docstore.Query{
					Filter: []docstore.Condition{{
						Field: "location",
						Op:    docstore.OpWithin,
						Value: docstore.Circle{Lng: -70.0, Lat: 42.0, Radius: 60 / docstore.EarthRadiusMiles},
					}},
					Sort: []docstore.Sort{{Field: "price"}},
				},
				want: []string{"item-1", "item-2"},
			},
			{
				name: "id",
				q: docstore.Query{
					Filter: []docstore.Condition{{Field: "id", Op: docstore.OpEq, Value: "item-2"}},
				},
				want: []string{"item-2"},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				docs, err := items.Find(ctx, tt.q)
				require.NoError(t, err)
				got := make([]string, len(docs))
				for i, d := range docs {
					got[i] = d.ID()
				}
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("projection", func(t *testing.T) {
		docs, err := items.Find(ctx, docstore.Query{
			Filter:     []docstore.Condition{{Field: "id", Op: docstore.OpEq, Value: "item-1"}},
			Projection: []string{"id", "name", "meta.city"},
		})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "item-1", docs[0].ID())
		assert.Equal(t, "Item 1", docs[0]["name"])
		assert.Equal(t, "City 1", docstore.String(docs[0], "meta.city"))
		assert.NotContains(t, docs[0], "price")
	})

	t.Run("count", func(t *testing.T) {
		n, err := items.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(6), n)

		n, err = items.Count(ctx, []docstore.Condition{{Field: "active", Op: docstore.OpEq, Value: false}})
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("update", func(t *testing.T) {
		got, err := items.UpdateByID(ctx, "item-6", docstore.Document{"price": 65.0, "token": nil})
		require.NoError(t, err)
		assert.Equal(t, 65.0, got["price"])
		assert.NotContains(t, got, "token")
		assert.Equal(t, "Item 6", got["name"])

		_, err = items.UpdateByID(ctx, "nope", docstore.Document{"price": 1.0})
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, items.DeleteByID(ctx, "item-6"))
		assert.ErrorIs(t, items.DeleteByID(ctx, "item-6"), docstore.ErrNotFound)

		n, err := items.DeleteMany(ctx, []docstore.Condition{{Field: "price", Op: docstore.OpLte, Value: 20.0}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		left, err := items.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), left)
	})

	require.NoError(t, db.Ping(ctx))
}
