// Package api assembles the devcamper HTTP surface: global middleware, the
// resource routes and the operational endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jrazmi/devcamper/app/devcamper/config"
	"github.com/jrazmi/devcamper/bridge/repositories/bootcampsrepobridge"
	"github.com/jrazmi/devcamper/bridge/repositories/coursesrepobridge"
	"github.com/jrazmi/devcamper/bridge/repositories/usersrepobridge"
	"github.com/jrazmi/devcamper/bridge/scaffolding/errs"
	"github.com/jrazmi/devcamper/bridge/scaffolding/metrics"
	"github.com/jrazmi/devcamper/bridge/scaffolding/mid"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/web"
)

// securityHeaders are written on every response.
var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"X-XSS-Protection":       "0",
	"Referrer-Policy":        "no-referrer",
}

const healthTimeout = 2 * time.Second

// Handler builds the service handler from cfg.
func Handler(cfg config.DevCamper) *web.WebHandler {
	app := web.NewWebHandler(cfg.Settings.HTTP,
		web.WithLogging(cfg.Log.Logger),
		web.WithTelemetry(cfg.Telemetry),
		web.WithDefaultHeaders(securityHeaders),
		web.WithGlobalMiddleware(
			mid.Logger(cfg.Log),
			mid.Metrics(),
			mid.Errors(cfg.Log),
			mid.Panics(),
			mid.RateLimit(mid.RateLimitConfig{
				Window: cfg.Settings.RateLimitWindow,
				Max:    cfg.Settings.RateLimitMax,
			}),
		),
	)

	app.NotFound(notFound)
	app.GET("/health", health(cfg.DB))
	app.HandleRaw("GET /metrics", metrics.Handler())

	protect := mid.Authenticate(mid.AuthConfig{
		Log:    cfg.Log,
		Tokens: cfg.Tokens,
		Users:  cfg.Repositories.Users,
	})
	countMode := cfg.Settings.CountMode()
	api := app.Group(cfg.Settings.APIRoute)

	bootcamps := bootcampsrepobridge.Config{
		Log:        cfg.Log,
		Repository: cfg.Repositories.Bootcamps,
		DB:         cfg.DB,
		CountMode:  countMode,
		Photos:     cfg.Photos,
		MaxUpload:  cfg.Settings.MaxFileUpload,
		Protect:    protect,
	}
	bootcampsrepobridge.AddHttpRoutes(api, bootcamps)
	bootcampsrepobridge.AddUploadRoutes(app.Group(""), bootcamps)

	coursesrepobridge.AddHttpRoutes(api, coursesrepobridge.Config{
		Log:        cfg.Log,
		Repository: cfg.Repositories.Courses,
		DB:         cfg.DB,
		CountMode:  countMode,
		Protect:    protect,
	})

	usersrepobridge.AddHttpRoutes(api, usersrepobridge.Config{
		Log:          cfg.Log,
		Repository:   cfg.Repositories.Users,
		DB:           cfg.DB,
		CountMode:    countMode,
		Tokens:       cfg.Tokens,
		Mailer:       cfg.Mailer,
		Protect:      protect,
		CookieExpire: cfg.Settings.CookieExpire(),
		SecureCookie: cfg.Settings.Production(),
	})

	return app
}

func notFound(ctx context.Context, r *http.Request) web.Encoder {
	return errs.Newf(errs.NotFound, "Route %s not found", r.URL.Path)
}

type healthStatus struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

func health(db docstore.Database) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		ctx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			return web.NewJSONResponseWithStatus(healthStatus{Status: "store unavailable"}, http.StatusServiceUnavailable)
		}
		return web.NewJSONResponse(healthStatus{Success: true, Status: "ok"})
	}
}
