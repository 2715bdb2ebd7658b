package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jrazmi/devcamper/sdk/environment"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var ErrMissingDatabase = errors.New("mongo database name is required")

// Options represents the exportable connection configuration
type Options struct {
	URI            string        `env:"MONGO_URI" default:"mongodb://localhost:27017"`
	Database       string        `env:"MONGO_DATABASE" default:"devcamper"`
	MaxPoolSize    int           `env:"MONGO_MAX_POOL_SIZE" default:"25"`
	MinPoolSize    int           `env:"MONGO_MIN_POOL_SIZE" default:"0"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" default:"10s"`
}

type config struct {
	uri            string
	database       string
	maxPoolSize    int
	minPoolSize    int
	connectTimeout time.Duration
	logger         *slog.Logger
	logCommands    bool
}

// Option is a function that configures the connection
type Option func(*config)

// WithLogger sets the logger used for command logging
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLogCommands logs every command the driver sends
func WithLogCommands(enable bool) Option {
	return func(c *config) {
		c.logCommands = enable
	}
}

// NewFromEnv connects using environment variables
func NewFromEnv(prefix string, opts ...Option) (*mongo.Database, error) {
	var cfg Options
	if err := environment.ParseEnvTags(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing mongo config: %w", err)
	}
	return New(cfg, opts...)
}

// New connects with cfg and pings the primary.
func New(cfg Options, opts ...Option) (*mongo.Database, error) {
	c := &config{
		uri:            cfg.URI,
		database:       cfg.Database,
		maxPoolSize:    cfg.MaxPoolSize,
		minPoolSize:    cfg.MinPoolSize,
		connectTimeout: cfg.ConnectTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.connectTimeout <= 0 {
		c.connectTimeout = 10 * time.Second
	}
	if c.database == "" {
		return nil, ErrMissingDatabase
	}

	clientOpts := options.Client().
		ApplyURI(c.uri).
		SetMaxPoolSize(uint64(c.maxPoolSize)).
		SetMinPoolSize(uint64(c.minPoolSize)).
		SetConnectTimeout(c.connectTimeout)
	if c.logCommands {
		clientOpts.SetMonitor(commandLogger(c.logger))
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return client.Database(c.database), nil
}

// StatusCheck returns nil if it can successfully talk to the server
func StatusCheck(ctx context.Context, db *mongo.Database) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second)
		defer cancel()
	}
	return db.Client().Ping(ctx, readpref.Primary())
}

func commandLogger(logger *slog.Logger) *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(ctx context.Context, e *event.CommandSucceededEvent) {
			logger.DebugContext(ctx, "mongo command",
				"command", e.CommandName,
				"request_id", e.RequestID,
				"duration", e.Duration,
			)
		},
		Failed: func(ctx context.Context, e *event.CommandFailedEvent) {
			logger.ErrorContext(ctx, "mongo command failed",
				"command", e.CommandName,
				"request_id", e.RequestID,
				"duration", e.Duration,
				"error", e.Failure,
			)
		},
	}
}
