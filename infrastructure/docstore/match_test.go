package docstore_test

import (
	"testing"

	"github.com/jrazmi/devcamper/core/scaffolding/fop"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchWithin(t *testing.T) {
	boston := docstore.Document{"location": docstore.Point(-71.0589, 42.3601)}
	worcester := docstore.Document{"location": docstore.Point(-71.8023, 42.2626)}
	nowhere := docstore.Document{}

	// roughly 40 miles apart
	near := docstore.Circle{Lng: -71.0589, Lat: 42.3601, Radius: 10 / docstore.EarthRadiusMiles}
	far := docstore.Circle{Lng: -71.0589, Lat: 42.3601, Radius: 50 / docstore.EarthRadiusMiles}

	within := func(c docstore.Circle) []docstore.Condition {
		return []docstore.Condition{{Field: "location", Op: docstore.OpWithin, Value: c}}
	}

	assert.True(t, docstore.Match(boston, within(near)))
	assert.False(t, docstore.Match(worcester, within(near)))
	assert.True(t, docstore.Match(worcester, within(far)))
	assert.False(t, docstore.Match(nowhere, within(far)))
}

func TestMatchArraysAndMissing(t *testing.T) {
	doc := docstore.Document{"careers": []any{"Business", "Web Development"}, "cost": 10.0}

	assert.True(t, docstore.Match(doc, []docstore.Condition{{Field: "careers", Op: docstore.OpEq, Value: "Business"}}))
	assert.True(t, docstore.Match(doc, []docstore.Condition{{Field: "careers", Op: docstore.OpIn, Value: []any{"Other", "Web Development"}}}))
	assert.False(t, docstore.Match(doc, []docstore.Condition{{Field: "careers", Op: docstore.OpEq, Value: "Other"}}))
	assert.False(t, docstore.Match(doc, []docstore.Condition{{Field: "missing", Op: docstore.OpGt, Value: 1.0}}))
	assert.True(t, docstore.Match(doc, []docstore.Condition{{Field: "cost", Op: docstore.OpGte, Value: 10.0}}))
	assert.True(t, docstore.Match(doc, nil))
}

func TestSortDocumentsMissingFirst(t *testing.T) {
	docs := []docstore.Document{
		{"id": "a", "cost": 3.0},
		{"id": "b"},
		{"id": "c", "cost": 1.0},
	}
	docstore.SortDocuments(docs, []docstore.Sort{{Field: "cost"}})
	assert.Equal(t, []string{"b", "c", "a"}, []string{docs[0].ID(), docs[1].ID(), docs[2].ID()})

	docstore.SortDocuments(docs, []docstore.Sort{{Field: "cost", Desc: true}})
	assert.Equal(t, []string{"a", "c", "b"}, []string{docs[0].ID(), docs[1].ID(), docs[2].ID()})
}

func TestProjectNested(t *testing.T) {
	doc := docstore.Document{
		"id":       "x",
		"name":     "Camp",
		"location": docstore.Document{"city": "Boston", "state": "MA"},
	}
	out := docstore.Project(doc, []string{"location.city"})
	assert.Equal(t, docstore.Document{"id": "x", "location": docstore.Document{"city": "Boston"}}, out)
}

func TestBuildQueryCoercion(t *testing.T) {
	q, err := docstore.BuildQuery(camps, descriptor(t, "tuition[gte]=10&housing=false&select=name&sort=name&page=3&limit=4"))
	require.NoError(t, err)

	assert.Equal(t, []docstore.Condition{
		{Field: "housing", Op: docstore.OpEq, Value: false},
		{Field: "tuition", Op: docstore.OpGte, Value: 10.0},
	}, q.Filter)
	assert.Equal(t, []docstore.Sort{{Field: "name"}}, q.Sort)
	assert.Equal(t, []string{"id", "name"}, q.Projection)
	assert.Equal(t, int64(8), q.Skip)
	assert.Equal(t, int64(4), q.Limit)
}

func TestBuildQueryRepeatedEqualityBecomesIn(t *testing.T) {
	q, err := docstore.BuildQuery(camps, fop.QueryDescriptor{
		Filter: fop.Filter{"tuition": {{Op: fop.OpEquals, Operand: []string{"1", "2"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []docstore.Condition{{Field: "tuition", Op: docstore.OpIn, Value: []any{1.0, 2.0}}}, q.Filter)
}
