package bootcampsrepo_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/repositories"
	"github.com/jrazmi/devcamper/core/repositories/bootcampsrepo"
	"github.com/jrazmi/devcamper/infrastructure/docstore/memstore"
	"github.com/jrazmi/devcamper/infrastructure/geocoder"
	"github.com/jrazmi/devcamper/sdk/logger"
	"github.com/jrazmi/devcamper/sdk/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// places resolves the addresses the tests use.
type places map[string]geocoder.Location

func (p places) Geocode(ctx context.Context, address string) (geocoder.Location, error) {
	loc, ok := p[address]
	if !ok {
		return geocoder.Location{}, geocoder.ErrNoMatch
	}
	return loc, nil
}

var testPlaces = places{
	"233 Bay State Rd Boston MA 02215": {Lng: -71.104028, Lat: 42.350846, City: "Boston", State: "MA", Zipcode: "02215", Country: "US"},
	"45 Upper College Rd Kingston RI 02881": {Lng: -71.525909, Lat: 41.483657, City: "Kingston", State: "RI", Zipcode: "02881", Country: "US"},
	"220 Pawtucket St, Lowell, MA 01854": {Lng: -71.324239, Lat: 42.643931, City: "Lowell", State: "MA", Zipcode: "01854", Country: "US"},
	"02118": {Lng: -71.0700, Lat: 42.3389, Zipcode: "02118"},
}

type capture struct {
	mu   sync.Mutex
	seen []events.Event
}

func (c *capture) Publish(ctx context.Context, e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, e)
}

func newRepo(t *testing.T, geo geocoder.Geocoder) (*bootcampsrepo.Repository, *capture) {
	t.Helper()
	pub := &capture{}
	repo, err := bootcampsrepo.NewRepository(logger.NewDiscard(), memstore.New(bootcampsrepo.Schema), pub, geo)
	require.NoError(t, err)
	return repo, pub
}

func input(name, address string) bootcampsrepo.CreateBootcamp {
	return bootcampsrepo.CreateBootcamp{
		Name:        name,
		Description: "Devworks is a full stack JavaScript Bootcamp",
		Website:     "https://devworks.com",
		Phone:       "(111) 111-1111",
		Email:       "enroll@devworks.com",
		Address:     address,
		Careers:     []string{"Web Development", "UI/UX"},
		Housing:     true,
	}
}

var (
	publisher = repositories.Actor{ID: "publisher-1"}
	other     = repositories.Actor{ID: "publisher-2"}
	admin     = repositories.Actor{ID: "admin-1", Admin: true}
)

func TestCreate(t *testing.T) {
	ctx := context.Background()
	repo, pub := newRepo(t, testPlaces)

	b, err := repo.Create(ctx, publisher, input("Devworks Bootcamp", "233 Bay State Rd Boston MA 02215"))
	require.NoError(t, err)
	assert.Equal(t, "devworks-bootcamp", b.Slug)
	assert.Equal(t, bootcampsrepo.DefaultPhoto, b.Photo)
	assert.Equal(t, publisher.ID, b.User)
	require.NotNil(t, b.Location)
	assert.Equal(t, []float64{-71.104028, 42.350846}, b.Location.Coordinates)
	assert.Equal(t, "Boston", b.Location.City)
	assert.Nil(t, b.AverageCost)

	require.Len(t, pub.seen, 1)
	assert.Equal(t, events.ItemCreated, pub.seen[0].Kind)
	assert.Equal(t, b.ID, pub.seen[0].ItemID)
}

func TestCreateOnePerPublisher(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, testPlaces)

	_, err := repo.Create(ctx, publisher, input("Devworks Bootcamp", "233 Bay State Rd Boston MA 02215"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, publisher, input("ModernTech Bootcamp", "220 Pawtucket St, Lowell, MA 01854"))
	assert.ErrorIs(t, err, repositories.ErrConflict)
	assert.EqualError(t, err, "The user with ID publisher-1 has already published a bootcamp")

	_, err = repo.Create(ctx, admin, input("Codemasters", "45 Upper College Rd Kingston RI 02881"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, admin, input("ModernTech Bootcamp", "220 Pawtucket St, Lowell, MA 01854"))
	require.NoError(t, err)
}

func TestCreateOnePerPublisherConcurrent(t *testing.T) {
	ctx := context.Background()
	repo, pub := newRepo(t, testPlaces)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = repo.Create(ctx, publisher, input(fmt.Sprintf("Bootcamp %d", i), "233 Bay State Rd Boston MA 02215"))
		}()
	}
	wg.Wait()

	var created, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, repositories.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)
	assert.Len(t, pub.seen, 1)
}

func TestCreateValidation(t *testing.T) {
	repo, _ := newRepo(t, testPlaces)

	in := input("", "")
	in.Website = "devworks"
	in.Careers = []string{"Juggling"}
	_, err := repo.Create(context.Background(), publisher, in)

	var fields validation.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, []string{"name", "website", "address", "careers"}, fields.Fields())
}

func TestCreateWithoutGeocoder(t *testing.T) {
	repo, _ := newRepo(t, geocoder.Disabled{})

	b, err := repo.Create(context.Background(), publisher, input("Devworks Bootcamp", "anywhere"))
	require.NoError(t, err)
	assert.Nil(t, b.Location)
	assert.Equal(t, "anywhere", b.Address)
}

func TestCreateUnknownAddress(t *testing.T) {
	repo, _ := newRepo(t, testPlaces)

	_, err := repo.Create(context.Background(), publisher, input("Devworks Bootcamp", "nowhere"))
	assert.ErrorIs(t, err, repositories.ErrValidation)
}

func TestUpdateAndDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	repo, pub := newRepo(t, testPlaces)

	b, err := repo.Create(ctx, publisher, input("Devworks Bootcamp", "233 Bay State Rd Boston MA 02215"))
	require.NoError(t, err)

	name := "Devworks Reloaded"
	_, err = repo.Update(ctx, other, b.ID, bootcampsrepo.UpdateBootcamp{Name: &name})
	assert.ErrorIs(t, err, repositories.ErrForbidden)
	assert.EqualError(t, err, "User publisher-2 is not authorized to update this bootcamp")

	got, err := repo.Update(ctx, publisher, b.ID, bootcampsrepo.UpdateBootcamp{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "devworks-reloaded", got.Slug)
	assert.Equal(t, b.Description, got.Description)

	assert.ErrorIs(t, repo.Delete(ctx, other, b.ID), repositories.ErrForbidden)
	require.NoError(t, repo.Delete(ctx, admin, b.ID))

	_, err = repo.QueryByID(ctx, b.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.EqualError(t, err, "Bootcamp not found with id of "+b.ID)

	last := pub.seen[len(pub.seen)-1]
	assert.Equal(t, events.ItemDeleted, last.Kind)
	assert.Equal(t, b.ID, last.ItemID)
}

func TestWithinRadius(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, testPlaces)

	boston, err := repo.Create(ctx, publisher, input("Devworks Bootcamp", "233 Bay State Rd Boston MA 02215"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, admin, input("Codemasters", "45 Upper College Rd Kingston RI 02881"))
	require.NoError(t, err)

	near, err := repo.WithinRadius(ctx, "02118", 10)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, boston.ID, near[0].ID)

	wide, err := repo.WithinRadius(ctx, "02118", 100)
	require.NoError(t, err)
	assert.Len(t, wide, 2)

	_, err = repo.WithinRadius(ctx, "99999", 10)
	assert.ErrorIs(t, err, repositories.ErrValidation)
}

func TestSetAverageCost(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t, testPlaces)

	b, err := repo.Create(ctx, publisher, input("Devworks Bootcamp", "233 Bay State Rd Boston MA 02215"))
	require.NoError(t, err)

	cost := 9000.0
	require.NoError(t, repo.SetAverageCost(ctx, b.ID, &cost))
	got, err := repo.QueryByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AverageCost)
	assert.Equal(t, 9000.0, *got.AverageCost)

	require.NoError(t, repo.SetAverageCost(ctx, b.ID, nil))
	got, err = repo.QueryByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AverageCost)

	assert.NoError(t, repo.SetAverageCost(ctx, "missing", &cost))
}
