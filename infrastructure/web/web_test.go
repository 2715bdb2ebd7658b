package web_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tag(name string, trail *[]string) web.Middleware {
	return func(next web.HandlerFunc) web.HandlerFunc {
		return func(ctx context.Context, r *http.Request) web.Encoder {
			*trail = append(*trail, name)
			return next(ctx, r)
		}
	}
}

func TestMiddlewareOrder(t *testing.T) {
	var trail []string
	h := web.NewWebHandler(web.HandlerOptions{}, web.WithGlobalMiddleware(tag("global", &trail)))

	api := h.Group("/api/v1/", tag("group", &trail))
	items := api.Group("/items", tag("nested", &trail))
	items.GET("/{id}", func(ctx context.Context, r *http.Request) web.Encoder {
		trail = append(trail, "handler:"+web.Param(r, "id"))
		return web.NewJSONResponse(map[string]string{"id": web.Param(r, "id")})
	}, tag("route", &trail))
	api.GET("/other", func(ctx context.Context, r *http.Request) web.Encoder {
		trail = append(trail, "other")
		return nil
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/items/42", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"42"}`, rec.Body.String())
	assert.Equal(t, []string{"global", "group", "nested", "route", "handler:42"}, trail)

	trail = nil
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/other", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"global", "group", "other"}, trail)
}

func TestCORSAndDefaultHeaders(t *testing.T) {
	h := web.NewWebHandler(web.HandlerOptions{
		CORSOrigins:    []string{"https://app.example.com"},
		DefaultHeaders: map[string]string{"X-Content-Type-Options": "nosniff"},
	})
	called := false
	h.Handle(http.MethodOptions, "/things", func(ctx context.Context, r *http.Request) web.Encoder {
		called = true
		return nil
	})

	req := httptest.NewRequest(http.MethodOptions, "/things", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestNotFoundFallback(t *testing.T) {
	h := web.NewWebHandler(web.HandlerOptions{})
	h.GET("/known", func(ctx context.Context, r *http.Request) web.Encoder {
		return web.NewRawResponse([]byte("ok"), "text/plain")
	})
	h.NotFound(func(ctx context.Context, r *http.Request) web.Encoder {
		return web.NewJSONResponseWithStatus(map[string]bool{"success": false}, http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/known", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
}

func TestCookieFromHandler(t *testing.T) {
	h := web.NewWebHandler(web.HandlerOptions{})
	h.POST("/login", func(ctx context.Context, r *http.Request) web.Encoder {
		web.SetCookie(ctx, &http.Cookie{Name: "token", Value: "abc", HttpOnly: true})
		return web.NewJSONResponse(map[string]bool{"success": true})
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, "abc", rec.Result().Cookies()[0].Value)
}

type errEncoder struct{}

func (errEncoder) Encode() ([]byte, string, error) { return []byte("boom"), "text/plain", nil }
func (errEncoder) Error() string                   { return "boom" }

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNoContent, web.StatusOf(nil))
	assert.Equal(t, http.StatusCreated, web.StatusOf(web.NewJSONResponseWithStatus("x", http.StatusCreated)))
	assert.Equal(t, http.StatusOK, web.StatusOf(web.NewJSONResponse("x")))
	assert.Equal(t, http.StatusInternalServerError, web.StatusOf(errEncoder{}))
	assert.Equal(t, http.StatusOK, web.StatusOf(web.NewRawResponse(nil, "")))
}

type input struct {
	Name string `json:"name"`
}

func (i input) Validate() error {
	if i.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func TestDecode(t *testing.T) {
	var in input
	err := web.Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`)), &in)
	require.NoError(t, err)
	assert.Equal(t, "x", in.Name)

	err = web.Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &in)
	assert.ErrorIs(t, err, web.ErrEmptyBody)

	err = web.Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`)), &input{})
	assert.ErrorContains(t, err, "name is required")

	err = web.Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)), &input{})
	assert.ErrorContains(t, err, "json decode")
}

func multipartRequest(t *testing.T, field, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFormFile(t *testing.T) {
	f, err := web.FormFile(multipartRequest(t, "file", "a.png", "image/png", []byte("png-bytes")), "file", 1024)
	require.NoError(t, err)
	assert.Equal(t, "a.png", f.Name)
	assert.Equal(t, "image/png", f.ContentType)
	assert.Equal(t, []byte("png-bytes"), f.Data)

	_, err = web.FormFile(multipartRequest(t, "other", "a.png", "image/png", []byte("x")), "file", 1024)
	assert.ErrorIs(t, err, web.ErrNoFile)

	_, err = web.FormFile(multipartRequest(t, "file", "a.png", "image/png", bytes.Repeat([]byte("x"), 64)), "file", 16)
	assert.ErrorIs(t, err, web.ErrFileTooLarge)

	_, err = web.FormFile(httptest.NewRequest(http.MethodPut, "/upload", strings.NewReader("plain")), "file", 16)
	assert.ErrorIs(t, err, web.ErrNoFile)
}
