package mongostore

import (
	"testing"
	"time"

	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, buildFilter(nil))

	assert.Equal(t, bson.M{"_id": "abc"}, buildFilter([]docstore.Condition{
		{Field: "id", Op: docstore.OpEq, Value: "abc"},
	}))

	assert.Equal(t, bson.M{"$and": bson.A{
		bson.M{"averageCost": bson.M{"$gt": 500.0}},
		bson.M{"averageCost": bson.M{"$lte": 10000.0}},
		bson.M{"careers": bson.M{"$in": bson.A{"Business", "Other"}}},
	}}, buildFilter([]docstore.Condition{
		{Field: "averageCost", Op: docstore.OpGt, Value: 500.0},
		{Field: "averageCost", Op: docstore.OpLte, Value: 10000.0},
		{Field: "careers", Op: docstore.OpIn, Value: []any{"Business", "Other"}},
	}))
}

func TestBuildFilterWithin(t *testing.T) {
	got := buildFilter([]docstore.Condition{{
		Field: "location",
		Op:    docstore.OpWithin,
		Value: docstore.Circle{Lng: -71.5, Lat: 42.1, Radius: 0.025},
	}})

	assert.Equal(t, bson.M{"location": bson.M{"$geoWithin": bson.M{
		"$centerSphere": bson.A{bson.A{-71.5, 42.1}, 0.025},
	}}}, got)
}

func TestConversionRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	doc := docstore.Document{
		"id":        "abc",
		"createdAt": now,
		"location":  docstore.Document{"city": "Boston"},
		"careers":   []any{"Business"},
	}

	m := toBSON(doc)
	assert.Equal(t, "abc", m["_id"])
	assert.NotContains(t, m, "id")
	assert.Equal(t, bson.M{"city": "Boston"}, m["location"])

	stored := bson.M{
		"_id":       "abc",
		"createdAt": primitive.NewDateTimeFromTime(now),
		"location":  bson.D{{Key: "city", Value: "Boston"}},
		"careers":   bson.A{"Business"},
		"weeks":     int32(8),
	}
	back := fromBSON(stored)
	assert.Equal(t, "abc", back.ID())
	assert.Equal(t, now, back["createdAt"])
	assert.Equal(t, docstore.Document{"city": "Boston"}, back["location"])
	assert.Equal(t, []any{"Business"}, back["careers"])
	assert.Equal(t, 8.0, back["weeks"])
}
