package commands

import (
	"context"
	"fmt"

	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/subscribers"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/docstore/storedriver"
	"github.com/jrazmi/devcamper/infrastructure/geocoder"
	"github.com/jrazmi/devcamper/schema"
	"github.com/jrazmi/devcamper/sdk/logger"
)

// Indexes creates the unique and geo indexes of every collection.
func Indexes(ctx context.Context, log *logger.Logger, db docstore.Database) error {
	if err := storedriver.EnsureIndexes(ctx, db, schema.Collections()...); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	log.InfoContext(ctx, "indexes ensured", "collections", len(schema.Collections()))
	return nil
}

// Seed loads the fixtures through the repositories and settles the events
// they raise, so averages are in place when it returns.
func Seed(ctx context.Context, log *logger.Logger, db docstore.Database, geo geocoder.Geocoder) (schema.Counts, error) {
	bus := events.NewBus(log)
	repos, err := schema.NewRepositories(log, db, bus, geo)
	if err != nil {
		return schema.Counts{}, fmt.Errorf("repositories: %w", err)
	}
	subscribers.Register(bus, log, repos.Courses, repos.Bootcamps)

	counts, err := schema.Seed(ctx, repos)
	if err != nil {
		return counts, fmt.Errorf("seed: %w", err)
	}
	if err := bus.Drain(ctx); err != nil {
		return counts, fmt.Errorf("settle seed events: %w", err)
	}

	log.InfoContext(ctx, "data imported", "users", counts.Users, "bootcamps", counts.Bootcamps, "courses", counts.Courses)
	return counts, nil
}

// Destroy deletes every document of every collection.
func Destroy(ctx context.Context, log *logger.Logger, db docstore.Database) error {
	if err := storedriver.Clear(ctx, db, schema.Collections()...); err != nil {
		return fmt.Errorf("destroy: %w", err)
	}
	log.InfoContext(ctx, "data destroyed")
	return nil
}
