package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jrazmi/devcamper/app/devcamper/api"
	"github.com/jrazmi/devcamper/app/devcamper/config"
	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/subscribers"
	"github.com/jrazmi/devcamper/infrastructure/authn"
	"github.com/jrazmi/devcamper/infrastructure/docstore/storedriver"
	"github.com/jrazmi/devcamper/infrastructure/geocoder"
	"github.com/jrazmi/devcamper/infrastructure/mailer"
	"github.com/jrazmi/devcamper/infrastructure/objectstore"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/infrastructure/workers"
	"github.com/jrazmi/devcamper/schema"
	"github.com/jrazmi/devcamper/sdk/environment"
	"github.com/jrazmi/devcamper/sdk/logger"
	"github.com/jrazmi/devcamper/sdk/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

var build = "develop"
var appName = "DEVCAMPER"

func main() {
	if err := environment.LoadEnv(); err != nil {
		fmt.Println("loading .env:", err)
		os.Exit(1)
	}

	tel := telemetry.NewTelemetry()
	log, err := logger.NewFromEnv(appName, logger.WithTraceID(tel.GetTraceID))
	if err != nil {
		fmt.Println("oh no we couldn't even get logging going.")
		os.Exit(1)
	}
	ctx := context.Background()

	if err := run(ctx, log, tel); err != nil {
		log.ErrorContext(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, tel telemetry.Telemetry) error {
	log.InfoContext(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0), "build", build)

	settings, err := config.LoadSettings(appName)
	if err != nil {
		return err
	}

	// :*: START DATABASES :*:
	db, err := storedriver.Open(storedriver.Config{
		Driver:     settings.StoreDriver,
		Prefix:     appName,
		Log:        log,
		LogQueries: settings.LogQueries,
	}, schema.Collections()...)
	if err != nil {
		return fmt.Errorf("configuring document store: %w", err)
	}
	defer func() {
		log.InfoContext(ctx, "shutdown", "status", "closing document store")
		if err := db.Close(context.Background()); err != nil {
			log.ErrorContext(ctx, "shutdown", "status", "closing document store", "err", err)
		}
	}()
	if err := storedriver.EnsureIndexes(ctx, db, schema.Collections()...); err != nil {
		return fmt.Errorf("ensuring indexes: %w", err)
	}
	log.InfoContext(ctx, "init", "service", "document store", "driver", settings.StoreDriver)

	// :*: START INTEGRATIONS :*:
	geo, err := geocoder.NewFromEnv(appName)
	if err != nil {
		return fmt.Errorf("configuring geocoder: %w", err)
	}
	tokens, err := authn.NewFromEnv(appName)
	if err != nil {
		return fmt.Errorf("configuring tokens: %w", err)
	}
	mail, err := mailer.NewFromEnv(appName, log.Logger)
	if err != nil {
		return fmt.Errorf("configuring mailer: %w", err)
	}
	photos, err := objectstore.NewFromEnv(appName)
	if err != nil {
		return fmt.Errorf("configuring object storage: %w", err)
	}
	if m, ok := photos.(*objectstore.Minio); ok {
		if err := m.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensuring bucket: %w", err)
		}
	}

	// REPOSITORIES //
	log.InfoContext(ctx, "startup", "status", "initializing repository support")
	bus := events.NewBus(log)
	repos, err := schema.NewRepositories(log, db, bus, geo)
	if err != nil {
		return fmt.Errorf("repositories: %w", err)
	}
	subscribers.Register(bus, log, repos.Courses, repos.Bootcamps)

	pool, err := events.NewPool(appName+"_EVENTS", bus,
		workers.WithMetrics(workers.NewPrometheusMetrics(prometheus.DefaultRegisterer, "devcamper")),
	)
	if err != nil {
		return err
	}
	go func() {
		if err := pool.Start(ctx); err != nil {
			log.ErrorContext(ctx, "events pool", "err", err)
		}
	}()
	defer func() {
		pool.Stop()
		if err := bus.Drain(context.Background()); err != nil {
			log.ErrorContext(ctx, "shutdown", "status", "draining events", "err", err)
		}
	}()
	// END REPOSITORIES //

	cfg := config.DevCamper{
		Build:        build,
		Settings:     settings,
		Log:          log,
		DB:           db,
		Repositories: repos,
		Events:       bus,
		Tokens:       tokens,
		Mailer:       mail,
		Photos:       photos,
		Telemetry:    tel,
	}

	server, err := web.NewServerFromEnv(appName,
		web.WithHandler(api.Handler(cfg)),
		web.WithErrorLog(logger.NewStdLogger(log, slog.LevelError)),
	)
	if err != nil {
		return fmt.Errorf("webserver: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "startup", "status", "api router started", "host", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case err := <-pool.Errors():
		server.Close()
		return fmt.Errorf("events pool: %w", err)

	case sig := <-shutdown:
		log.InfoContext(ctx, "shutdown", "status", "shutdown started", "signal", sig)
		defer log.InfoContext(ctx, "shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(ctx, server.Config.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
