// Package bootcampsrepo stores bootcamp listings and enforces who may
// publish and change them.
package bootcampsrepo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/repositories"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/geocoder"
	"github.com/jrazmi/devcamper/sdk/logger"
	"github.com/jrazmi/devcamper/sdk/validation"
)

// Repository provides access to bootcamp storage.
type Repository struct {
	log      *logger.Logger
	storer   docstore.Collection
	events   events.Publisher
	geocoder geocoder.Geocoder

	// publishing holds a *sync.Mutex per publisher id; the count and the
	// insert of Create run under it.
	publishing sync.Map
}

// NewRepository creates a new Bootcamp repository over the bootcamps
// collection of db. Addresses are resolved with geo; geocoder.Disabled
// leaves listings without a location.
func NewRepository(log *logger.Logger, db docstore.Database, publisher events.Publisher, geo geocoder.Geocoder) (*Repository, error) {
	storer, err := db.Collection(Collection)
	if err != nil {
		return nil, fmt.Errorf("bootcamps collection: %w", err)
	}
	return &Repository{
		log:      log,
		storer:   storer,
		events:   publisher,
		geocoder: geo,
	}, nil
}

// Create publishes a bootcamp for actor. A publisher owns at most one
// bootcamp; admins are not limited.
func (r *Repository) Create(ctx context.Context, actor repositories.Actor, input CreateBootcamp) (Bootcamp, error) {
	if err := input.Validate(); err != nil {
		return Bootcamp{}, fmt.Errorf("create bootcamp: %w", err)
	}

	if !actor.Admin {
		mu := r.publisherLock(actor.ID)
		mu.Lock()
		defer mu.Unlock()

		n, err := r.storer.Count(ctx, []docstore.Condition{{Field: "user", Op: docstore.OpEq, Value: actor.ID}})
		if err != nil {
			return Bootcamp{}, repositories.StoreError("create bootcamp", err)
		}
		if n > 0 {
			return Bootcamp{}, repositories.Fail(repositories.ErrConflict, "The user with ID %s has already published a bootcamp", actor.ID)
		}
	}

	doc := docstore.Document{
		"name":          input.Name,
		"slug":          validation.Slugify(input.Name),
		"description":   input.Description,
		"address":       input.Address,
		"careers":       stringsToAny(input.Careers),
		"photo":         DefaultPhoto,
		"housing":       input.Housing,
		"jobAssistance": input.JobAssistance,
		"jobGuarantee":  input.JobGuarantee,
		"acceptGi":      input.AcceptGi,
		"user":          actor.ID,
	}
	for key, v := range map[string]string{"website": input.Website, "phone": input.Phone, "email": input.Email} {
		if v != "" {
			doc[key] = v
		}
	}

	loc, err := r.locate(ctx, input.Address)
	if err != nil {
		return Bootcamp{}, fmt.Errorf("create bootcamp: %w", err)
	}
	if loc != nil {
		doc["location"] = loc
	}

	doc, err = r.storer.Insert(ctx, doc)
	if err != nil {
		return Bootcamp{}, repositories.StoreError("create bootcamp", err)
	}

	bootcamp := fromDocument(doc)
	r.log.InfoContext(ctx, "created bootcamp", "id", bootcamp.ID, "user", actor.ID)
	r.events.Publish(ctx, events.Event{Kind: events.ItemCreated, Collection: Collection, ItemID: bootcamp.ID})
	return bootcamp, nil
}

func (r *Repository) publisherLock(id string) *sync.Mutex {
	mu, _ := r.publishing.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// QueryByID returns the bootcamp with id.
func (r *Repository) QueryByID(ctx context.Context, id string) (Bootcamp, error) {
	doc, err := r.storer.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Bootcamp{}, repositories.Fail(repositories.ErrNotFound, "Bootcamp not found with id of %s", id)
		}
		return Bootcamp{}, repositories.StoreError("query bootcamp", err)
	}
	return fromDocument(doc), nil
}

// Authorize returns the bootcamp when actor may change it. verb names the
// attempted change in the refusal.
func (r *Repository) Authorize(ctx context.Context, actor repositories.Actor, id, verb string) (Bootcamp, error) {
	bootcamp, err := r.QueryByID(ctx, id)
	if err != nil {
		return Bootcamp{}, err
	}
	if !actor.Owns(bootcamp.User) {
		return Bootcamp{}, repositories.Fail(repositories.ErrForbidden, "User %s is not authorized to %s", actor.ID, verb)
	}
	return bootcamp, nil
}

// Update applies the set fields of input. A new name re-slugs the bootcamp
// and a new address geocodes it again.
func (r *Repository) Update(ctx context.Context, actor repositories.Actor, id string, input UpdateBootcamp) (Bootcamp, error) {
	if err := input.Validate(); err != nil {
		return Bootcamp{}, fmt.Errorf("update bootcamp: %w", err)
	}
	if _, err := r.Authorize(ctx, actor, id, "update this bootcamp"); err != nil {
		return Bootcamp{}, err
	}

	patch := input.patch()
	if input.Name != nil {
		patch["slug"] = validation.Slugify(*input.Name)
	}
	if input.Address != nil {
		loc, err := r.locate(ctx, *input.Address)
		if err != nil {
			return Bootcamp{}, fmt.Errorf("update bootcamp: %w", err)
		}
		if loc != nil {
			patch["location"] = loc
		}
	}

	doc, err := r.storer.UpdateByID(ctx, id, patch)
	if err != nil {
		return Bootcamp{}, repositories.StoreError("update bootcamp", err)
	}

	r.events.Publish(ctx, events.Event{Kind: events.ItemUpdated, Collection: Collection, ItemID: id})
	return fromDocument(doc), nil
}

// Delete removes the bootcamp. Its courses follow through the ItemDeleted
// event.
func (r *Repository) Delete(ctx context.Context, actor repositories.Actor, id string) error {
	if _, err := r.Authorize(ctx, actor, id, "delete this bootcamp"); err != nil {
		return err
	}
	if err := r.storer.DeleteByID(ctx, id); err != nil {
		return repositories.StoreError("delete bootcamp", err)
	}

	r.log.InfoContext(ctx, "deleted bootcamp", "id", id, "user", actor.ID)
	r.events.Publish(ctx, events.Event{Kind: events.ItemDeleted, Collection: Collection, ItemID: id})
	return nil
}

// WithinRadius returns the bootcamps within distance miles of zipcode.
func (r *Repository) WithinRadius(ctx context.Context, zipcode string, distance float64) ([]Bootcamp, error) {
	if distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		return nil, repositories.Fail(repositories.ErrValidation, "Please provide a valid distance")
	}

	loc, err := r.geocoder.Geocode(ctx, zipcode)
	if err != nil {
		return nil, geocodeFailure(err)
	}

	docs, err := r.storer.Find(ctx, docstore.Query{
		Filter: []docstore.Condition{{
			Field: "location",
			Op:    docstore.OpWithin,
			Value: docstore.Circle{Lng: loc.Lng, Lat: loc.Lat, Radius: distance / docstore.EarthRadiusMiles},
		}},
	})
	if err != nil {
		return nil, repositories.StoreError("bootcamps in radius", err)
	}

	out := make([]Bootcamp, len(docs))
	for i, d := range docs {
		out[i] = fromDocument(d)
	}
	return out, nil
}

// SetPhoto records the stored photo name of the bootcamp.
func (r *Repository) SetPhoto(ctx context.Context, id, photo string) (Bootcamp, error) {
	doc, err := r.storer.UpdateByID(ctx, id, docstore.Document{"photo": photo})
	if err != nil {
		return Bootcamp{}, repositories.StoreError("set photo", err)
	}
	return fromDocument(doc), nil
}

// SetAverageCost stores the aggregated course tuition; nil unsets it.
// Missing bootcamps are ignored.
func (r *Repository) SetAverageCost(ctx context.Context, id string, cost *float64) error {
	var v any
	if cost != nil {
		v = *cost
	}
	_, err := r.storer.UpdateByID(ctx, id, docstore.Document{"averageCost": v})
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return repositories.StoreError("set average cost", err)
	}
	return nil
}

func (r *Repository) locate(ctx context.Context, address string) (docstore.Document, error) {
	loc, err := r.geocoder.Geocode(ctx, address)
	switch {
	case err == nil:
		return locationDocument(loc), nil
	case errors.Is(err, geocoder.ErrNotConfigured):
		return nil, nil
	}
	return nil, geocodeFailure(err)
}

func geocodeFailure(err error) error {
	switch {
	case errors.Is(err, geocoder.ErrNoMatch):
		return repositories.Fail(repositories.ErrValidation, "Could not find a location for that address")
	case errors.Is(err, geocoder.ErrNotConfigured):
		return repositories.Fail(repositories.ErrValidation, "Geocoding is not configured")
	}
	return fmt.Errorf("geocode: %w", err)
}
