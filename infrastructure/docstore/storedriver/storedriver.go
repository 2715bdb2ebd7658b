// Package storedriver opens the document store named by a driver setting.
package storedriver

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/docstore/memstore"
	"github.com/jrazmi/devcamper/infrastructure/docstore/mongostore"
	"github.com/jrazmi/devcamper/infrastructure/docstore/pgxstore"
	"github.com/jrazmi/devcamper/infrastructure/mongodb"
	"github.com/jrazmi/devcamper/infrastructure/postgresdb"
	"github.com/jrazmi/devcamper/sdk/logger"
)

const (
	Mongo    = "mongo"
	Postgres = "postgres"
	Memory   = "memory"
)

var ErrUnknownDriver = errors.New("unknown store driver")

// Config selects and configures a store.
type Config struct {
	Driver string
	// Prefix is the environment prefix the driver reads its connection
	// settings from.
	Prefix     string
	Log        *logger.Logger
	LogQueries bool
}

// Dropper is implemented by stores that can remove their collections
// wholesale.
type Dropper interface {
	Drop(ctx context.Context) error
}

// Open connects to the store cfg names and serves schemas from it.
func Open(cfg Config, schemas ...docstore.Schema) (docstore.Database, error) {
	switch cfg.Driver {
	case Mongo:
		db, err := mongodb.NewFromEnv(cfg.Prefix,
			mongodb.WithLogger(cfg.Log.Logger),
			mongodb.WithLogCommands(cfg.LogQueries),
		)
		if err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		return mongostore.New(db, schemas...), nil

	case Postgres:
		pool, err := postgresdb.NewFromEnv(cfg.Prefix,
			postgresdb.WithLogger(cfg.Log.Logger),
			postgresdb.WithLogQueries(cfg.LogQueries),
		)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return pgxstore.New(pool, schemas...), nil

	case Memory:
		return memstore.New(schemas...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}

// Clear removes every document of schemas, dropping whole collections when
// the store supports it.
func Clear(ctx context.Context, db docstore.Database, schemas ...docstore.Schema) error {
	if d, ok := db.(Dropper); ok {
		return d.Drop(ctx)
	}
	for _, s := range schemas {
		coll, err := db.Collection(s.Collection)
		if err != nil {
			return err
		}
		if _, err := coll.DeleteMany(ctx, nil); err != nil {
			return fmt.Errorf("clear %s: %w", s.Collection, err)
		}
	}
	return nil
}

// EnsureIndexes creates the indexes every schema declares.
func EnsureIndexes(ctx context.Context, db docstore.Database, schemas ...docstore.Schema) error {
	for _, s := range schemas {
		coll, err := db.Collection(s.Collection)
		if err != nil {
			return err
		}
		if err := coll.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}
