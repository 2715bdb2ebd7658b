// Package coursesrepo stores the courses of bootcamps and aggregates their
// tuition.
package coursesrepo

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/repositories"
	"github.com/jrazmi/devcamper/core/repositories/bootcampsrepo"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// Repository provides access to course storage.
type Repository struct {
	log       *logger.Logger
	storer    docstore.Collection
	events    events.Publisher
	bootcamps *bootcampsrepo.Repository
}

// NewRepository creates a new Course repository over the courses collection
// of db.
func NewRepository(log *logger.Logger, db docstore.Database, publisher events.Publisher, bootcamps *bootcampsrepo.Repository) (*Repository, error) {
	storer, err := db.Collection(Collection)
	if err != nil {
		return nil, fmt.Errorf("courses collection: %w", err)
	}
	return &Repository{
		log:       log,
		storer:    storer,
		events:    publisher,
		bootcamps: bootcamps,
	}, nil
}

// Create adds a course to a bootcamp the actor owns.
func (r *Repository) Create(ctx context.Context, actor repositories.Actor, bootcampID string, input CreateCourse) (Course, error) {
	if err := input.Validate(); err != nil {
		return Course{}, fmt.Errorf("create course: %w", err)
	}

	bootcamp, err := r.bootcamps.QueryByID(ctx, bootcampID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Course{}, repositories.Fail(repositories.ErrNotFound, "No bootcamp with the id of %s", bootcampID)
		}
		return Course{}, err
	}
	if !actor.Owns(bootcamp.User) {
		return Course{}, repositories.Fail(repositories.ErrForbidden, "User %s is not authorized to add a course to bootcamp %s", actor.ID, bootcampID)
	}

	doc, err := r.storer.Insert(ctx, docstore.Document{
		"title":                input.Title,
		"description":          input.Description,
		"weeks":                input.Weeks,
		"tuition":              *input.Tuition,
		"minimumSkill":         input.MinimumSkill,
		"scholarshipAvailable": input.ScholarshipAvailable,
		"bootcamp":             bootcampID,
		"user":                 actor.ID,
	})
	if err != nil {
		return Course{}, repositories.StoreError("create course", err)
	}

	course := fromDocument(doc)
	r.log.InfoContext(ctx, "created course", "id", course.ID, "bootcamp", bootcampID)
	r.events.Publish(ctx, events.Event{Kind: events.ItemCreated, Collection: Collection, ItemID: course.ID, ParentID: bootcampID})
	return course, nil
}

// QueryByID returns the course with id.
func (r *Repository) QueryByID(ctx context.Context, id string) (Course, error) {
	doc, err := r.storer.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Course{}, repositories.Fail(repositories.ErrNotFound, "No course with the id of %s", id)
		}
		return Course{}, repositories.StoreError("query course", err)
	}
	return fromDocument(doc), nil
}

// QueryDetail returns the course with its bootcamp's name and description.
func (r *Repository) QueryDetail(ctx context.Context, id string) (Detail, error) {
	course, err := r.QueryByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}

	detail := Detail{Course: course}
	bootcamp, err := r.bootcamps.QueryByID(ctx, course.Bootcamp)
	switch {
	case err == nil:
		detail.Bootcamp = &BootcampSummary{ID: bootcamp.ID, Name: bootcamp.Name, Description: bootcamp.Description}
	case !repositories.IsNotFound(err):
		return Detail{}, err
	}
	return detail, nil
}

// ListByBootcamp returns the courses of a bootcamp, oldest first.
func (r *Repository) ListByBootcamp(ctx context.Context, bootcampID string) ([]Course, error) {
	docs, err := r.storer.Find(ctx, docstore.Query{
		Filter: []docstore.Condition{{Field: "bootcamp", Op: docstore.OpEq, Value: bootcampID}},
		Sort:   []docstore.Sort{{Field: docstore.KeyCreatedAt}},
	})
	if err != nil {
		return nil, repositories.StoreError("list courses", err)
	}

	out := make([]Course, len(docs))
	for i, d := range docs {
		out[i] = fromDocument(d)
	}
	return out, nil
}

// Update applies the set fields of input to a course the actor owns.
func (r *Repository) Update(ctx context.Context, actor repositories.Actor, id string, input UpdateCourse) (Course, error) {
	if err := input.Validate(); err != nil {
		return Course{}, fmt.Errorf("update course: %w", err)
	}

	course, err := r.authorize(ctx, actor, id, "update")
	if err != nil {
		return Course{}, err
	}

	doc, err := r.storer.UpdateByID(ctx, id, input.patch())
	if err != nil {
		return Course{}, repositories.StoreError("update course", err)
	}

	r.events.Publish(ctx, events.Event{Kind: events.ItemUpdated, Collection: Collection, ItemID: id, ParentID: course.Bootcamp})
	return fromDocument(doc), nil
}

// Delete removes a course the actor owns.
func (r *Repository) Delete(ctx context.Context, actor repositories.Actor, id string) error {
	course, err := r.authorize(ctx, actor, id, "delete")
	if err != nil {
		return err
	}
	if err := r.storer.DeleteByID(ctx, id); err != nil {
		return repositories.StoreError("delete course", err)
	}

	r.log.InfoContext(ctx, "deleted course", "id", id, "bootcamp", course.Bootcamp)
	r.events.Publish(ctx, events.Event{Kind: events.ItemDeleted, Collection: Collection, ItemID: id, ParentID: course.Bootcamp})
	return nil
}

// DeleteByBootcamp removes every course of a bootcamp.
func (r *Repository) DeleteByBootcamp(ctx context.Context, bootcampID string) (int64, error) {
	n, err := r.storer.DeleteMany(ctx, []docstore.Condition{{Field: "bootcamp", Op: docstore.OpEq, Value: bootcampID}})
	if err != nil {
		return 0, repositories.StoreError("delete courses", err)
	}
	return n, nil
}

// AverageCost is the mean tuition of a bootcamp's courses rounded up to the
// next multiple of ten, or nil when it has none.
func (r *Repository) AverageCost(ctx context.Context, bootcampID string) (*float64, error) {
	docs, err := r.storer.Find(ctx, docstore.Query{
		Filter:     []docstore.Condition{{Field: "bootcamp", Op: docstore.OpEq, Value: bootcampID}},
		Projection: []string{"tuition"},
	})
	if err != nil {
		return nil, repositories.StoreError("average cost", err)
	}

	var (
		sum float64
		n   int
	)
	for _, d := range docs {
		if t, ok := docstore.Float(d, "tuition"); ok {
			sum += t
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}

	avg := math.Ceil(sum/float64(n)/10) * 10
	return &avg, nil
}

func (r *Repository) authorize(ctx context.Context, actor repositories.Actor, id, verb string) (Course, error) {
	course, err := r.QueryByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !actor.Owns(course.User) {
		return Course{}, repositories.Fail(repositories.ErrForbidden, "User %s is not authorized to %s course %s", actor.ID, verb, id)
	}
	return course, nil
}
