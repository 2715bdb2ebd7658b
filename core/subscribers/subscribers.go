// Package subscribers keeps derived data in step with writes: the average
// course cost of each bootcamp and the courses of deleted bootcamps.
package subscribers

import (
	"context"
	"fmt"

	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/repositories/bootcampsrepo"
	"github.com/jrazmi/devcamper/core/repositories/coursesrepo"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// CourseStore is what the subscribers need from the courses repository.
type CourseStore interface {
	AverageCost(ctx context.Context, bootcampID string) (*float64, error)
	DeleteByBootcamp(ctx context.Context, bootcampID string) (int64, error)
}

// BootcampStore is what the subscribers need from the bootcamps repository.
type BootcampStore interface {
	SetAverageCost(ctx context.Context, id string, cost *float64) error
}

// Register subscribes the aggregation and cascade handlers to bus.
func Register(bus *events.Bus, log *logger.Logger, courses CourseStore, bootcamps BootcampStore) {
	bus.Subscribe("average-cost", coursesrepo.Collection, AverageCost(log, courses, bootcamps),
		events.ItemCreated, events.ItemUpdated, events.ItemDeleted)
	bus.Subscribe("course-cascade", bootcampsrepo.Collection, CascadeCourses(log, courses),
		events.ItemDeleted)
}

// AverageCost recomputes the average cost of the bootcamp a course event
// belongs to.
func AverageCost(log *logger.Logger, courses CourseStore, bootcamps BootcampStore) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		if e.ParentID == "" {
			return nil
		}

		cost, err := courses.AverageCost(ctx, e.ParentID)
		if err != nil {
			return fmt.Errorf("average cost: %w", err)
		}
		if err := bootcamps.SetAverageCost(ctx, e.ParentID, cost); err != nil {
			return fmt.Errorf("average cost: %w", err)
		}

		if cost == nil {
			log.DebugContext(ctx, "average cost cleared", "bootcamp", e.ParentID)
		} else {
			log.DebugContext(ctx, "average cost updated", "bootcamp", e.ParentID, "cost", *cost)
		}
		return nil
	}
}

// CascadeCourses deletes the courses of a deleted bootcamp.
func CascadeCourses(log *logger.Logger, courses CourseStore) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		n, err := courses.DeleteByBootcamp(ctx, e.ItemID)
		if err != nil {
			return fmt.Errorf("cascade courses: %w", err)
		}
		log.InfoContext(ctx, "courses removed with bootcamp", "bootcamp", e.ItemID, "count", n)
		return nil
	}
}
