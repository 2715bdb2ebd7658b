// Package commands implements the tooling subcommands.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrazmi/devcamper/infrastructure/postgresdb"
	"github.com/jrazmi/devcamper/sdk/logger"
)

const migrateTimeout = 5 * time.Minute

// Migrate creates the documents table and its indexes in postgres.
func Migrate(ctx context.Context, log *logger.Logger, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	log.InfoContext(ctx, "migration started", "step", "checking database status")
	if err := postgresdb.StatusCheck(ctx, pool); err != nil {
		return fmt.Errorf("database status check failed: %w", err)
	}

	log.InfoContext(ctx, "database status check successful", "step", "running migrations")
	if err := postgresdb.Migrate(ctx, pool, log.Logger); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	log.InfoContext(ctx, "migrations completed successfully")
	return nil
}
