package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jrazmi/devcamper/app/tooling/commands"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/docstore/storedriver"
	"github.com/jrazmi/devcamper/infrastructure/geocoder"
	"github.com/jrazmi/devcamper/infrastructure/postgresdb"
	"github.com/jrazmi/devcamper/schema"
	"github.com/jrazmi/devcamper/sdk/environment"
	"github.com/jrazmi/devcamper/sdk/logger"
	"github.com/spf13/cobra"
)

var build = "develop"

// appName is shared with the service so one .env configures both.
var appName = "DEVCAMPER"

var errNotConfirmed = errors.New("refusing to destroy data without --yes")

func rootCommand(log *logger.Logger) *cobra.Command {
	var (
		driver     string
		logQueries bool
	)

	root := &cobra.Command{
		Use:          "tooling",
		Short:        "DevCamper data tooling",
		Version:      build,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.InfoContext(cmd.Context(), "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0), "command", cmd.Name())
		},
	}
	root.PersistentFlags().StringVar(&driver, "driver",
		environment.GetPrefixEnvOrDefault(appName, "STORE_DRIVER", storedriver.Mongo),
		"document store driver: mongo, postgres or memory")
	root.PersistentFlags().BoolVar(&logQueries, "log-queries", false, "log every store command")

	// withStore opens the selected store for the duration of fn.
	withStore := func(ctx context.Context, fn func(db docstore.Database) error) error {
		db, err := storedriver.Open(storedriver.Config{
			Driver:     driver,
			Prefix:     appName,
			Log:        log,
			LogQueries: logQueries,
		}, schema.Collections()...)
		if err != nil {
			return fmt.Errorf("configuring document store: %w", err)
		}
		defer func() {
			log.InfoContext(ctx, "shutdown", "status", "closing document store")
			db.Close(context.Background())
		}()
		log.InfoContext(ctx, "init", "service", "document store", "driver", driver)
		return fn(db)
	}

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the postgres documents table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := postgresdb.NewFromEnv(appName,
				postgresdb.WithLogger(log.Logger),
				postgresdb.WithLogQueries(logQueries),
			)
			if err != nil {
				return fmt.Errorf("configuring postgres support: %w", err)
			}
			defer pool.Close()
			return commands.Migrate(cmd.Context(), log, pool)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "indexes",
		Short: "Create unique and geo indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(db docstore.Database) error {
				return commands.Indexes(cmd.Context(), log, db)
			})
		},
	})

	var fresh bool
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Import the fixture users, bootcamps and courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			geo, err := geocoder.NewFromEnv(appName)
			if err != nil {
				return fmt.Errorf("configuring geocoder: %w", err)
			}
			return withStore(cmd.Context(), func(db docstore.Database) error {
				if fresh {
					if err := commands.Destroy(cmd.Context(), log, db); err != nil {
						return err
					}
				}
				counts, err := commands.Seed(cmd.Context(), log, db, geo)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d users, %d bootcamps, %d courses\n",
					counts.Users, counts.Bootcamps, counts.Courses)
				return nil
			})
		},
	}
	seed.Flags().BoolVar(&fresh, "fresh", false, "destroy existing data first")
	root.AddCommand(seed)

	var confirmed bool
	destroy := &cobra.Command{
		Use:   "destroy",
		Short: "Delete every document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errNotConfirmed
			}
			return withStore(cmd.Context(), func(db docstore.Database) error {
				if err := commands.Destroy(cmd.Context(), log, db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "data destroyed")
				return nil
			})
		},
	}
	destroy.Flags().BoolVar(&confirmed, "yes", false, "confirm deletion")
	root.AddCommand(destroy)

	return root
}

func main() {
	if err := environment.LoadEnv(); err != nil {
		fmt.Println("loading .env:", err)
		os.Exit(1)
	}

	log, err := logger.NewFromEnv(appName)
	if err != nil {
		fmt.Println("oh no we couldn't even get logging going.")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand(log).ExecuteContext(ctx); err != nil {
		log.ErrorContext(ctx, "tooling", "err", err)
		stop()
		os.Exit(1)
	}
}
