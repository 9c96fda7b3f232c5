// Package session holds the bearer token and user identity for a browser
// session. The manager is injected explicitly into handlers rather than
// living in a package-level singleton, and consumers read a three-valued
// status so "not yet determined" is never confused with "not signed in".
package session

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/careview/careview/internal/upstream"
)

// Status is the tri-state authentication status. StatusUnknown means the
// persisted session has not been restored yet for this request; redirect
// decisions must never treat it as StatusAnonymous.
type Status int

const (
	StatusUnknown Status = iota
	StatusAnonymous
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// authKey is the fixed key the session payload is persisted under.
const authKey = "careview_auth"

// contextKey is where the resolved session lands on the echo context.
const contextKey = "session"

// Session is the persisted payload: an opaque bearer token plus the identity
// it was issued to.
type Session struct {
	Token string        `json:"token"`
	User  upstream.User `json:"user"`
}

type resolved struct {
	sess   Session
	status Status
}

// Manager reads and writes the session cookie. It is safe for concurrent use.
type Manager struct {
	store      sessions.Store
	cookieName string
}

func NewManager(secret []byte, cookieName string, secure bool) *Manager {
	store := sessions.NewCookieStore(secret)
	// MaxAge 0 yields a browser-session cookie: the session never outlives
	// the browser session, and no expiry check exists beyond that.
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, cookieName: cookieName}
}

// Establish overwrites any prior session and persists synchronously before
// returning.
func (m *Manager) Establish(c echo.Context, token string, user upstream.User) error {
	sess, _ := m.store.Get(c.Request(), m.cookieName)
	payload, err := json.Marshal(Session{Token: token, User: user})
	if err != nil {
		return err
	}
	sess.Values[authKey] = string(payload)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	c.Set(contextKey, resolved{Session{Token: token, User: user}, StatusAuthenticated})
	return nil
}

// Clear removes the persisted session and resets the request to anonymous.
func (m *Manager) Clear(c echo.Context) error {
	sess, _ := m.store.Get(c.Request(), m.cookieName)
	delete(sess.Values, authKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	c.Set(contextKey, resolved{Session{}, StatusAnonymous})
	return nil
}

// Resolve restores the persisted session for this request. An absent or
// unparsable cookie is "no session", never an error.
func (m *Manager) Resolve(c echo.Context) (Session, Status) {
	sess, err := m.store.Get(c.Request(), m.cookieName)
	if err != nil {
		return Session{}, StatusAnonymous
	}
	raw, ok := sess.Values[authKey].(string)
	if !ok || raw == "" {
		return Session{}, StatusAnonymous
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil || s.Token == "" {
		return Session{}, StatusAnonymous
	}
	return s, StatusAuthenticated
}

// Middleware resolves the session exactly once per request, before any
// handler runs, and publishes the result on the echo context.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, status := m.Resolve(c)
			c.Set(contextKey, resolved{s, status})
			return next(c)
		}
	}
}

// Current returns the session resolved for this request. Before the
// middleware has run the status is StatusUnknown.
func Current(c echo.Context) (Session, Status) {
	r, ok := c.Get(contextKey).(resolved)
	if !ok {
		return Session{}, StatusUnknown
	}
	return r.sess, r.status
}
