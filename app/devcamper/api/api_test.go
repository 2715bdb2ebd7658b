package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrazmi/devcamper/app/devcamper/api"
	"github.com/jrazmi/devcamper/app/devcamper/config"
	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/subscribers"
	"github.com/jrazmi/devcamper/infrastructure/authn"
	"github.com/jrazmi/devcamper/infrastructure/docstore/memstore"
	"github.com/jrazmi/devcamper/infrastructure/geocoder"
	"github.com/jrazmi/devcamper/infrastructure/mailer"
	"github.com/jrazmi/devcamper/infrastructure/objectstore"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/schema"
	"github.com/jrazmi/devcamper/sdk/logger"
	"github.com/jrazmi/devcamper/sdk/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type app struct {
	handler http.Handler
	bus     *events.Bus
}

func newApp(t *testing.T, settings config.Settings) app {
	t.Helper()
	log := logger.NewDiscard()
	db := memstore.New(schema.Collections()...)
	bus := events.NewBus(log)

	repos, err := schema.NewRepositories(log, db, bus, geocoder.Disabled{})
	require.NoError(t, err)
	subscribers.Register(bus, log, repos.Courses, repos.Bootcamps)

	tokens, err := authn.New(authn.Options{Secret: "api-test", Expire: time.Hour, Issuer: "test"})
	require.NoError(t, err)
	photos, err := objectstore.NewDir(t.TempDir())
	require.NoError(t, err)

	h := api.Handler(config.DevCamper{
		Build:        "test",
		Settings:     settings,
		Log:          log,
		DB:           db,
		Repositories: repos,
		Events:       bus,
		Tokens:       tokens,
		Mailer:       mailer.NewLogSender(log.Logger),
		Photos:       photos,
		Telemetry:    telemetry.NewTelemetry(),
	})
	return app{handler: h, bus: bus}
}

func defaultSettings() config.Settings {
	return config.Settings{
		Env:              config.EnvDevelopment,
		JWTCookieExpire:  30,
		MaxFileUpload:    1 << 20,
		ResultsCountMode: "all",
		RateLimitWindow:  10 * time.Minute,
		RateLimitMax:     1000,
		APIRoute:         "/api/v1",
		HTTP:             web.HandlerOptions{CORSOrigins: []string{"*"}},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Token   string          `json:"token"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (a app) do(t *testing.T, method, target, token string, payload any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var out envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func TestHealthAndFallbacks(t *testing.T) {
	a := newApp(t, defaultSettings())

	rec, body := a.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec, body = a.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "Route /api/v1/nope not found", body.Error)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/bootcamps", nil)
	req.Header.Set("Origin", "https://devcamper.io")
	pre := httptest.NewRecorder()
	a.handler.ServeHTTP(pre, req)
	assert.Equal(t, http.StatusNoContent, pre.Code)
	assert.Equal(t, "*", pre.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	a := newApp(t, defaultSettings())
	a.do(t, http.MethodGet, "/health", "", nil)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "devcamper_http_requests_total")
}

func TestRateLimitApplies(t *testing.T) {
	settings := defaultSettings()
	settings.RateLimitMax = 2
	a := newApp(t, settings)

	for range 2 {
		rec, _ := a.do(t, http.MethodGet, "/api/v1/bootcamps", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, body := a.do(t, http.MethodGet, "/api/v1/bootcamps", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests, please try again later", body.Error)
}

func TestBootcampLifecycle(t *testing.T) {
	ctx := context.Background()
	a := newApp(t, defaultSettings())

	rec, body := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Publisher", "email": "publisher@gmail.com", "password": "123456", "role": "publisher",
	})
	require.Equal(t, http.StatusOK, rec.Code, body.Error)
	token := body.Token

	rec, body = a.do(t, http.MethodPost, "/api/v1/bootcamps", token, map[string]any{
		"name":        "Devworks Bootcamp",
		"description": "Devworks is a full stack JavaScript Bootcamp",
		"address":     "233 Bay State Rd Boston MA 02215",
		"careers":     []string{"Web Development", "UI/UX"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, body.Error)
	var camp struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &camp))
	assert.Equal(t, "devworks-bootcamp", camp.Slug)

	for _, tuition := range []float64{8000, 10000} {
		rec, body = a.do(t, http.MethodPost, "/api/v1/bootcamps/"+camp.ID+"/courses", token, map[string]any{
			"title":        "Course",
			"description":  "All of the essentials",
			"weeks":        "8",
			"tuition":      tuition,
			"minimumSkill": "beginner",
		})
		require.Equal(t, http.StatusCreated, rec.Code, body.Error)
	}
	require.NoError(t, a.bus.Drain(ctx))

	rec, body = a.do(t, http.MethodGet, "/api/v1/bootcamps?select=name,averageCost", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []struct {
		Name        string  `json:"name"`
		AverageCost float64 `json:"averageCost"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, 9000.0, listed[0].AverageCost)

	rec, body = a.do(t, http.MethodDelete, "/api/v1/bootcamps/"+camp.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, body.Error)
	require.NoError(t, a.bus.Drain(ctx))

	rec, body = a.do(t, http.MethodGet, "/api/v1/courses", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, body.Count)
}
