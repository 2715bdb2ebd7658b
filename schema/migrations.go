// Package schema holds what the stores are built from: the Postgres
// migrations, the collection schemas and the seed fixtures.
package schema

import "embed"

// MigrationsFS contains all SQL migration files from pgmigrations directory.
//
//go:embed pgmigrations/*.sql
var MigrationsFS embed.FS
