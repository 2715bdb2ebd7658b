package subscribers_test

import (
	"context"
	"testing"

	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/repositories"
	"github.com/jrazmi/devcamper/core/repositories/bootcampsrepo"
	"github.com/jrazmi/devcamper/core/repositories/coursesrepo"
	"github.com/jrazmi/devcamper/core/subscribers"
	"github.com/jrazmi/devcamper/infrastructure/docstore/memstore"
	"github.com/jrazmi/devcamper/infrastructure/geocoder"
	"github.com/jrazmi/devcamper/sdk/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var owner = repositories.Actor{ID: "publisher-1"}

type world struct {
	bus       *events.Bus
	bootcamps *bootcampsrepo.Repository
	courses   *coursesrepo.Repository
}

func newWorld(t *testing.T) world {
	t.Helper()
	log := logger.NewDiscard()
	db := memstore.New(bootcampsrepo.Schema, coursesrepo.Schema)
	bus := events.NewBus(log)

	bootcamps, err := bootcampsrepo.NewRepository(log, db, bus, geocoder.Disabled{})
	require.NoError(t, err)
	courses, err := coursesrepo.NewRepository(log, db, bus, bootcamps)
	require.NoError(t, err)

	subscribers.Register(bus, log, courses, bootcamps)
	return world{bus: bus, bootcamps: bootcamps, courses: courses}
}

func (w world) bootcamp(t *testing.T) bootcampsrepo.Bootcamp {
	t.Helper()
	b, err := w.bootcamps.Create(context.Background(), owner, bootcampsrepo.CreateBootcamp{
		Name:        "Devworks Bootcamp",
		Description: "Full stack",
		Address:     "Boston",
		Careers:     []string{"Web Development"},
	})
	require.NoError(t, err)
	return b
}

func (w world) course(t *testing.T, bootcampID string, tuition float64) coursesrepo.Course {
	t.Helper()
	c, err := w.courses.Create(context.Background(), owner, bootcampID, coursesrepo.CreateCourse{
		Title:        "Course",
		Description:  "Learn",
		Weeks:        "4",
		Tuition:      &tuition,
		MinimumSkill: "beginner",
	})
	require.NoError(t, err)
	return c
}

func averageCost(t *testing.T, w world, id string) *float64 {
	t.Helper()
	b, err := w.bootcamps.QueryByID(context.Background(), id)
	require.NoError(t, err)
	return b.AverageCost
}

func TestAverageCostFollowsCourses(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	b := w.bootcamp(t)

	first := w.course(t, b.ID, 8000)
	w.course(t, b.ID, 10000)
	require.NoError(t, w.bus.Drain(ctx))

	cost := averageCost(t, w, b.ID)
	require.NotNil(t, cost)
	assert.Equal(t, 9000.0, *cost)

	tuition := 12001.0
	_, err := w.courses.Update(ctx, owner, first.ID, coursesrepo.UpdateCourse{Tuition: &tuition})
	require.NoError(t, err)
	require.NoError(t, w.bus.Drain(ctx))
	assert.Equal(t, 11010.0, *averageCost(t, w, b.ID))
}

func TestAverageCostClearedWithLastCourse(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	b := w.bootcamp(t)

	c := w.course(t, b.ID, 5000)
	require.NoError(t, w.bus.Drain(ctx))
	require.NotNil(t, averageCost(t, w, b.ID))

	require.NoError(t, w.courses.Delete(ctx, owner, c.ID))
	require.NoError(t, w.bus.Drain(ctx))
	assert.Nil(t, averageCost(t, w, b.ID))
}

func TestBootcampDeleteCascades(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	b := w.bootcamp(t)

	c := w.course(t, b.ID, 5000)
	w.course(t, b.ID, 6000)
	require.NoError(t, w.bus.Drain(ctx))

	require.NoError(t, w.bootcamps.Delete(ctx, owner, b.ID))
	require.NoError(t, w.bus.Drain(ctx))

	list, err := w.courses.ListByBootcamp(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = w.courses.QueryByID(ctx, c.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

type failingCourses struct{}

func (failingCourses) AverageCost(context.Context, string) (*float64, error) {
	return nil, assert.AnError
}

func (failingCourses) DeleteByBootcamp(context.Context, string) (int64, error) {
	return 0, assert.AnError
}

func TestHandlerErrorsSurface(t *testing.T) {
	log := logger.NewDiscard()
	ctx := context.Background()

	err := subscribers.AverageCost(log, failingCourses{}, nil)(ctx, events.Event{ParentID: "b1"})
	assert.ErrorIs(t, err, assert.AnError)

	err = subscribers.CascadeCourses(log, failingCourses{})(ctx, events.Event{ItemID: "b1"})
	assert.ErrorIs(t, err, assert.AnError)

	assert.NoError(t, subscribers.AverageCost(log, failingCourses{}, nil)(ctx, events.Event{}))
}
