// Package config holds the settings and dependencies the devcamper service
// is assembled from. Both are built once in main and never modified.
package config

import (
	"fmt"
	"time"

	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/infrastructure/authn"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/mailer"
	"github.com/jrazmi/devcamper/infrastructure/objectstore"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/schema"
	"github.com/jrazmi/devcamper/sdk/environment"
	"github.com/jrazmi/devcamper/sdk/logger"
	"github.com/jrazmi/devcamper/sdk/telemetry"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Settings are the service level knobs. Token signing (JWT_SECRET,
// JWT_EXPIRE) is read by authn under the same prefix.
type Settings struct {
	Env              string        `env:"ENV" default:"development"`
	JWTCookieExpire  int           `env:"JWT_COOKIE_EXPIRE" default:"30"`
	MaxFileUpload    int64         `env:"MAX_FILE_UPLOAD" default:"1000000"`
	StoreDriver      string        `env:"STORE_DRIVER" default:"mongo"`
	LogQueries       bool          `env:"LOG_QUERIES" default:"false"`
	ResultsCountMode string        `env:"RESULTS_COUNT_MODE" default:"all"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" default:"10m"`
	RateLimitMax     int           `env:"RATE_LIMIT_MAX" default:"100"`
	APIRoute         string        `env:"API_ROUTE" default:"/api/v1"`

	// HTTP carries CORS_ORIGINS.
	HTTP web.HandlerOptions
}

// LoadSettings reads Settings under prefix.
func LoadSettings(prefix string) (Settings, error) {
	var s Settings
	if err := environment.ParseEnvTags(prefix, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing settings: %w", err)
	}
	if s.Env != EnvDevelopment && s.Env != EnvProduction {
		return Settings{}, fmt.Errorf("unknown environment %q", s.Env)
	}
	return s, nil
}

// Production reports whether cookies must be Secure.
func (s Settings) Production() bool {
	return s.Env == EnvProduction
}

// CookieExpire is the token cookie lifetime.
func (s Settings) CookieExpire() time.Duration {
	return time.Duration(s.JWTCookieExpire) * 24 * time.Hour
}

// CountMode is how list totals are counted.
func (s Settings) CountMode() docstore.CountMode {
	return docstore.ParseCountMode(s.ResultsCountMode)
}

// DevCamper is everything the HTTP layer is wired from.
type DevCamper struct {
	Build    string
	Settings Settings
	Log      *logger.Logger

	DB           docstore.Database
	Repositories schema.Repositories
	Events       *events.Bus

	Tokens    authn.Tokens
	Mailer    mailer.Sender
	Photos    objectstore.Store
	Telemetry telemetry.Telemetry
}
