package mid_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrazmi/devcamper/bridge/scaffolding/mid"
	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/repositories/usersrepo"
	"github.com/jrazmi/devcamper/core/scaffolding/fop"
	"github.com/jrazmi/devcamper/infrastructure/authn"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/docstore/memstore"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/sdk/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	programs = docstore.Schema{
		Collection: "programs",
		Fields: map[string]docstore.Kind{
			"name":        docstore.KindString,
			"description": docstore.KindString,
			"tuition":     docstore.KindNumber,
			"createdAt":   docstore.KindTime,
		},
		Relations: map[string]docstore.Relation{
			"lessons": {Name: "lessons", Collection: "lessons", LocalField: "id", ForeignField: "program", Many: true},
		},
	}
	lessons = docstore.Schema{
		Collection: "lessons",
		Fields: map[string]docstore.Kind{
			"title":     docstore.KindString,
			"program":   docstore.KindID,
			"createdAt": docstore.KindTime,
		},
	}
)

func seededDB(t *testing.T) docstore.Database {
	t.Helper()
	ctx := context.Background()
	db := memstore.New(programs, lessons)
	coll, err := db.Collection("programs")
	require.NoError(t, err)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 12; i++ {
		_, err := coll.Insert(ctx, docstore.Document{
			"id":          fmt.Sprintf("p%02d", i),
			"name":        fmt.Sprintf("Program %d", i),
			"description": "desc",
			"tuition":     float64(i * 1000),
			"createdAt":   base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	lc, err := db.Collection("lessons")
	require.NoError(t, err)
	_, err = lc.Insert(ctx, docstore.Document{"title": "Intro", "program": "p12"})
	require.NoError(t, err)
	return db
}

type envelope struct {
	Success    bool                 `json:"success"`
	Count      int                  `json:"count"`
	Pagination fop.PaginationResult `json:"pagination"`
	Data       []map[string]any     `json:"data"`
	Error      string               `json:"error"`
}

func listHandler(t *testing.T, cfg mid.ResultsConfig) *web.WebHandler {
	t.Helper()
	h := web.NewWebHandler(web.HandlerOptions{}, web.WithGlobalMiddleware(mid.Errors(logger.NewDiscard())))
	h.GET("/programs", func(ctx context.Context, r *http.Request) web.Encoder {
		res, ok := mid.TakeAdvancedResults(ctx)
		require.True(t, ok)
		_, again := mid.TakeAdvancedResults(ctx)
		assert.False(t, again)
		return res
	}, mid.AdvancedResults(cfg))
	return h
}

func get(t *testing.T, h http.Handler, target string, mutate ...func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestAdvancedResultsPageScenario(t *testing.T) {
	h := listHandler(t, mid.ResultsConfig{DB: seededDB(t), Collection: "programs"})

	rec, body := get(t, h, "/programs?select=name,description&sort=-tuition&page=2&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, body.Success)
	assert.Equal(t, 5, body.Count)
	require.NotNil(t, body.Pagination.Next)
	require.NotNil(t, body.Pagination.Previous)
	assert.Equal(t, fop.PageRef{Page: 3, Limit: 5}, *body.Pagination.Next)
	assert.Equal(t, fop.PageRef{Page: 1, Limit: 5}, *body.Pagination.Previous)

	require.Len(t, body.Data, 5)
	assert.Equal(t, "Program 7", body.Data[0]["name"])
	assert.Equal(t, "Program 3", body.Data[4]["name"])
	for _, d := range body.Data {
		assert.ElementsMatch(t, []string{"id", "name", "description"}, keys(d))
	}
}

func TestAdvancedResultsCountModes(t *testing.T) {
	db := seededDB(t)

	_, all := get(t, listHandler(t, mid.ResultsConfig{DB: db, Collection: "programs"}), "/programs?tuition[lte]=5000&limit=5")
	assert.Equal(t, 5, all.Count)
	assert.NotNil(t, all.Pagination.Next, "unfiltered total of 12 leaves a next page")

	_, filtered := get(t, listHandler(t, mid.ResultsConfig{DB: db, Collection: "programs", CountMode: docstore.CountFiltered}), "/programs?tuition[lte]=5000&limit=5")
	assert.Equal(t, 5, filtered.Count)
	assert.Nil(t, filtered.Pagination.Next)
}

func TestAdvancedResultsEmptyAndRelations(t *testing.T) {
	h := listHandler(t, mid.ResultsConfig{
		DB:         seededDB(t),
		Collection: "programs",
		Relations:  []fop.Relation{{Name: "lessons"}},
	})

	rec, body := get(t, h, "/programs?name=Nope")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, 0, body.Count)
	assert.Empty(t, body.Data)

	_, body = get(t, h, "/programs?sort=-createdAt&limit=1")
	require.Len(t, body.Data, 1)
	lessonsOf, ok := body.Data[0]["lessons"].([]any)
	require.True(t, ok)
	assert.Len(t, lessonsOf, 1)
}

func TestAdvancedResultsBadQuery(t *testing.T) {
	h := listHandler(t, mid.ResultsConfig{DB: seededDB(t), Collection: "programs"})

	rec, body := get(t, h, "/programs?color=red")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, `unknown field "color"`)

	rec, _ = get(t, h, "/programs?tuition[gt]=cheap")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// =============================================================================

type authFixture struct {
	handler   *web.WebHandler
	tokens    *authn.TokenService
	publisher usersrepo.User
	user      usersrepo.User
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	ctx := context.Background()
	log := logger.NewDiscard()

	users, err := usersrepo.NewRepository(log, memstore.New(usersrepo.Schema), events.Discard{})
	require.NoError(t, err)
	tokens, err := authn.New(authn.Options{Secret: "test-secret", Expire: time.Hour, Issuer: "test"})
	require.NoError(t, err)

	publisher, err := users.Create(ctx, usersrepo.CreateUser{Name: "Pub", Email: "pub@example.com", Role: usersrepo.RolePublisher, Password: "123456"})
	require.NoError(t, err)
	user, err := users.Create(ctx, usersrepo.CreateUser{Name: "User", Email: "user@example.com", Password: "123456"})
	require.NoError(t, err)

	h := web.NewWebHandler(web.HandlerOptions{}, web.WithGlobalMiddleware(mid.Errors(log)))
	h.GET("/publish", func(ctx context.Context, r *http.Request) web.Encoder {
		u, err := mid.GetUser(ctx)
		require.NoError(t, err)
		actor := mid.GetActor(ctx)
		return web.NewJSONResponse(map[string]any{"success": true, "id": u.ID, "admin": actor.Admin})
	}, mid.Authenticate(mid.AuthConfig{Log: log, Tokens: tokens, Users: users}), mid.Authorize(usersrepo.RolePublisher, usersrepo.RoleAdmin))

	return authFixture{handler: h, tokens: tokens, publisher: publisher, user: user}
}

func (f authFixture) token(t *testing.T, id string) string {
	t.Helper()
	tok, err := f.tokens.NewToken(id)
	require.NoError(t, err)
	return tok
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestAuthenticate(t *testing.T) {
	f := newAuthFixture(t)

	rec, body := get(t, f.handler, "/publish")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized to access this route", body.Error)

	rec, _ = get(t, f.handler, "/publish", bearer("not-a-token"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = get(t, f.handler, "/publish", bearer(f.token(t, "ghost")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = get(t, f.handler, "/publish", bearer(f.token(t, f.publisher.ID)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), f.publisher.ID)

	rec, _ = get(t, f.handler, "/publish", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: mid.TokenCookie, Value: f.token(t, f.publisher.ID)})
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = get(t, f.handler, "/publish", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: mid.TokenCookie, Value: "none"})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorize(t *testing.T) {
	f := newAuthFixture(t)

	rec, body := get(t, f.handler, "/publish", bearer(f.token(t, f.user.ID)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "User role user is not authorized to access this route", body.Error)
}

func TestAuthorizeWithoutUser(t *testing.T) {
	h := web.NewWebHandler(web.HandlerOptions{}, web.WithGlobalMiddleware(mid.Errors(logger.NewDiscard())))
	h.GET("/admin", func(ctx context.Context, r *http.Request) web.Encoder {
		return nil
	}, mid.Authorize(usersrepo.RoleAdmin))

	rec, _ := get(t, h, "/admin")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =============================================================================

func TestPanicsBecomeServerErrors(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewDefault(logger.WithOutput(&buf))

	h := web.NewWebHandler(web.HandlerOptions{}, web.WithGlobalMiddleware(
		mid.Logger(log), mid.Metrics(), mid.Errors(log), mid.Panics(),
	))
	h.GET("/boom", func(ctx context.Context, r *http.Request) web.Encoder {
		panic("kaboom")
	})

	rec, body := get(t, h, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server Error", body.Error)
	assert.NotContains(t, rec.Body.String(), "kaboom")

	assert.Contains(t, buf.String(), "kaboom")
	assert.Contains(t, buf.String(), `"statuscode":500`)
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewDefault(logger.WithOutput(&buf))

	h := web.NewWebHandler(web.HandlerOptions{}, web.WithGlobalMiddleware(mid.Logger(log), mid.Metrics()))
	h.POST("/things", func(ctx context.Context, r *http.Request) web.Encoder {
		return web.NewJSONResponseWithStatus(map[string]bool{"success": true}, http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/things?x=1", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, buf.String(), "request started")
	assert.Contains(t, buf.String(), `"statuscode":201`)
	assert.Contains(t, buf.String(), `"path":"/things?x=1"`)
}

func TestRateLimit(t *testing.T) {
	h := web.NewWebHandler(web.HandlerOptions{}, web.WithGlobalMiddleware(
		mid.Errors(logger.NewDiscard()),
		mid.RateLimit(mid.RateLimitConfig{Window: time.Minute, Max: 2}),
	))
	h.GET("/ping", func(ctx context.Context, r *http.Request) web.Encoder {
		return web.NewJSONResponse(map[string]bool{"success": true})
	})

	from := func(addr string) func(*http.Request) {
		return func(r *http.Request) { r.RemoteAddr = addr }
	}

	for i := 0; i < 2; i++ {
		rec, _ := get(t, h, "/ping", from("10.0.0.1:5000"))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := get(t, h, "/ping", from("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests, please try again later", body.Error)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec, _ = get(t, h, "/ping", from("10.0.0.2:5000"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	h := web.NewWebHandler(web.HandlerOptions{}, web.WithGlobalMiddleware(mid.RateLimit(mid.RateLimitConfig{})))
	h.GET("/ping", func(ctx context.Context, r *http.Request) web.Encoder {
		return web.NewJSONResponse(map[string]bool{"success": true})
	})

	for i := 0; i < 5; i++ {
		rec, _ := get(t, h, "/ping")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
