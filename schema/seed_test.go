package schema_test

import (
	"context"
	"testing"

	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/repositories"
	"github.com/jrazmi/devcamper/core/subscribers"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/docstore/memstore"
	"github.com/jrazmi/devcamper/infrastructure/geocoder"
	"github.com/jrazmi/devcamper/schema"
	"github.com/jrazmi/devcamper/sdk/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	log := logger.NewDiscard()
	db := memstore.New(schema.Collections()...)
	bus := events.NewBus(log)

	repos, err := schema.NewRepositories(log, db, bus, geocoder.Disabled{})
	require.NoError(t, err)
	subscribers.Register(bus, log, repos.Courses, repos.Bootcamps)

	counts, err := schema.Seed(ctx, repos)
	require.NoError(t, err)
	assert.Equal(t, schema.Counts{Users: 6, Bootcamps: 3, Courses: 6}, counts)
	require.NoError(t, bus.Drain(ctx))

	admin, err := repos.Users.Authenticate(ctx, "admin@gmail.com", "123456")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	want := map[string]float64{
		"Devworks Bootcamp":   9000,
		"ModernTech Bootcamp": 12000,
		"Codemasters":         9000,
	}
	coll, err := db.Collection("bootcamps")
	require.NoError(t, err)
	n, err := coll.Count(ctx, nil)
	require.NoError(t, err)
	require.EqualValues(t, len(want), n)

	for name, cost := range want {
		docs, err := coll.Find(ctx, docstore.Query{
			Filter: []docstore.Condition{{Field: "name", Op: docstore.OpEq, Value: name}},
		})
		require.NoError(t, err)
		require.Len(t, docs, 1, name)

		camp, err := repos.Bootcamps.QueryByID(ctx, docs[0].ID())
		require.NoError(t, err)
		require.NotNil(t, camp.AverageCost, name)
		assert.Equal(t, cost, *camp.AverageCost, name)
	}

	_, err = schema.Seed(ctx, repos)
	assert.ErrorIs(t, err, repositories.ErrDuplicate)
}
