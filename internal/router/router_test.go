package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authsvc/internal/auth"
	"authsvc/internal/cache"
	"authsvc/internal/config"
	"authsvc/internal/handler"
	"authsvc/internal/metrics"
	"authsvc/internal/session"
)

func newTestEcho(t *testing.T, ready func(context.Context) error) *echo.Echo {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewManager(c, auth.NewJWTService("secret", time.Hour), session.Options{
		CookieName: "qid",
		TTL:        time.Hour,
	})

	e := echo.New()
	Register(e, Deps{
		Config:      &config.Config{FrontendURL: "http://localhost:3000"},
		Logger:      logger,
		Metrics:     metrics.New(),
		Sessions:    sessions,
		AuthHandler: handler.NewAuthHandler(nil, sessions, logger),
		Ready:       ready,
	})
	return e
}

func TestHealthz(t *testing.T) {
	e := newTestEcho(t, func(context.Context) error { return nil })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestHealthz_Unavailable(t *testing.T) {
	e := newTestEcho(t, func(context.Context) error { return errors.New("redis down") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	e := newTestEcho(t, nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAPIRoutes(t *testing.T) {
	e := newTestEcho(t, nil)

	registered := map[string]bool{}
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"POST /api/register",
		"POST /api/login",
		"POST /api/logout",
		"GET /api/me",
		"POST /api/forgot-password",
		"POST /api/change-password",
	} {
		require.True(t, registered[want], want)
	}
}

func TestCustomValidator(t *testing.T) {
	e := newTestEcho(t, nil)

	type payload struct {
		Name string `validate:"max=3"`
	}
	assert.NoError(t, e.Validator.Validate(&payload{Name: "abc"}))
	assert.Error(t, e.Validator.Validate(&payload{Name: "abcd"}))
}
