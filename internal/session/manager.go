// Package session binds an opaque session id, carried in a signed cookie, to
// a user id kept in Redis.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"authsvc/internal/auth"
	"authsvc/internal/cache"
)

const (
	sessionKeyPrefix = "sess:"
	// contextKey is where the middleware leaves the verified session id.
	contextKey = "session_id"
)

// Options configure the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	Logger     *slog.Logger // defaults to slog.Default
}

// Manager issues and resolves sessions.
type Manager struct {
	cache  *cache.Client
	signer *auth.JWTService
	opts   Options
}

// NewManager creates a session manager.
func NewManager(cache *cache.Client, signer *auth.JWTService, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{cache: cache, signer: signer, opts: opts}
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.opts.CookieName
}

// Middleware verifies the session cookie, when present, and stores the
// session id on the echo context. Requests without a valid cookie proceed
// unauthenticated.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "cookie:" + m.opts.CookieName,
		ContextKey:  contextKey,
		ParseTokenFunc: func(_ echo.Context, raw string) (interface{}, error) {
			sid, err := m.signer.ParseSession(raw)
			if err != nil {
				return nil, err
			}
			return sid, nil
		},
		ErrorHandler: func(echo.Context, error) error {
			return nil
		},
		ContinueOnIgnoredError: true,
	})
}

// FromContext returns the request-scoped session handle.
func (m *Manager) FromContext(c echo.Context) *Handle {
	return &Handle{m: m, c: c}
}

func (m *Manager) key(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Handle is the session of one request.
type Handle struct {
	m *Manager
	c echo.Context
}

// sessionID returns the verified id from the middleware, or verifies the
// cookie itself when the middleware did not run.
func (h *Handle) sessionID() string {
	if sid, ok := h.c.Get(contextKey).(string); ok && sid != "" {
		return sid
	}
	cookie, err := h.c.Cookie(h.m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	sid, err := h.m.signer.ParseSession(cookie.Value)
	if err != nil {
		return ""
	}
	return sid
}

// UserID returns the authenticated user. ok is false when there is no
// cookie, the cookie is invalid, or the session expired.
func (h *Handle) UserID(ctx context.Context) (uint, bool, error) {
	sid := h.sessionID()
	if sid == "" {
		return 0, false, nil
	}

	data, err := h.m.cache.Get(ctx, h.m.key(sid))
	if err != nil {
		return 0, false, oops.Code("SESSION_LOOKUP_FAILED").Wrap(err)
	}
	if data == nil {
		return 0, false, nil
	}

	id, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, false, oops.Code("SESSION_CORRUPT").With("value", string(data)).Wrap(err)
	}
	return uint(id), true, nil
}

// SetUser starts a new session for userID and sets the cookie. Any session
// the request already carried is discarded.
func (h *Handle) SetUser(ctx context.Context, userID uint) error {
	if old := h.sessionID(); old != "" {
		if err := h.m.cache.Delete(ctx, h.m.key(old)); err != nil {
			// The old session stays valid until its TTL runs out.
			h.m.opts.Logger.WarnContext(ctx, "discard previous session", "error", err)
		}
	}

	sid, err := auth.GenerateToken()
	if err != nil {
		return err
	}

	value := []byte(strconv.FormatUint(uint64(userID), 10))
	if err := h.m.cache.Set(ctx, h.m.key(sid), value, h.m.opts.TTL); err != nil {
		return oops.Code("SESSION_CREATE_FAILED").Wrap(err)
	}

	signed, err := h.m.signer.SignSession(sid)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("operation", "sign").Wrap(err)
	}

	h.c.Set(contextKey, sid)
	h.c.SetCookie(&http.Cookie{
		Name:     h.m.opts.CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(h.m.opts.TTL / time.Second),
		HttpOnly: true,
		Secure:   h.m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Destroy removes the session from the store. The cookie is cleared even
// when removal fails.
func (h *Handle) Destroy(ctx context.Context) error {
	defer h.clearCookie()

	sid := h.sessionID()
	if sid == "" {
		return nil
	}
	h.c.Set(contextKey, "")
	if err := h.m.cache.Delete(ctx, h.m.key(sid)); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").Wrap(err)
	}
	return nil
}

func (h *Handle) clearCookie() {
	h.c.SetCookie(&http.Cookie{
		Name:     h.m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
