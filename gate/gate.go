// Package gate decides routing outcomes for navigation requests based on the
// session assertion supplied by the external identity provider, and guards
// API routes that require an authenticated, verified identity.
//
// State is never stored: it is recomputed per request from the session
// cookie. Every evaluation terminates in exactly one of four outcomes:
// allow, redirect to login, redirect to the verify-email page, or redirect
// to the dashboard. If the identity lookup fails or times out, the request
// is treated as unauthenticated (fail closed).
package gate

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/simtrack/simtrack"
)

// Session is the identity assertion read from the external provider.
// The gate never constructs or mutates it beyond this read.
type Session struct {
	UID           string
	EmailVerified bool
}

// Authenticator resolves a session token into a Session.
// Implementations are expected to make a network round trip; the gate
// bounds every call with a timeout.
type Authenticator interface {
	Session(ctx context.Context, token string) (*Session, error)
}

// DefaultLookupTimeout bounds the identity lookup per request.
const DefaultLookupTimeout = 5 * time.Second

// DefaultSessionCookie is the cookie carrying the provider session token.
const DefaultSessionCookie = "session"

// Well-known navigation targets.
const (
	LoginPath       = "/login"
	RegisterPath    = "/register"
	VerifyEmailPath = "/auth/verify-email"
	DashboardPath   = "/dashboard"
)

// Gate evaluates session state for incoming requests.
type Gate struct {
	auth          Authenticator
	cookieName    string
	lookupTimeout time.Duration

	protectedPrefixes []string
}

// Option configures a Gate.
type Option func(*Gate)

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) Option {
	return func(g *Gate) {
		g.cookieName = name
	}
}

// WithLookupTimeout overrides the identity lookup timeout.
func WithLookupTimeout(d time.Duration) Option {
	return func(g *Gate) {
		g.lookupTimeout = d
	}
}

// WithProtectedPrefixes overrides the path prefixes that require an
// authenticated, verified identity.
func WithProtectedPrefixes(prefixes ...string) Option {
	return func(g *Gate) {
		g.protectedPrefixes = prefixes
	}
}

// New creates a Gate backed by the given Authenticator.
func New(auth Authenticator, opts ...Option) *Gate {
	g := &Gate{
		auth:          auth,
		cookieName:    DefaultSessionCookie,
		lookupTimeout: DefaultLookupTimeout,
		protectedPrefixes: []string{
			DashboardPath, "/challenges", "/sims", "/profile", "/settings",
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// resolve returns the session for the request, or nil when the request is
// unauthenticated. Provider errors and timeouts also yield nil.
func (g *Gate) resolve(r *http.Request) *Session {
	c, err := r.Cookie(g.cookieName)
	if err != nil || c.Value == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.lookupTimeout)
	defer cancel()

	sess, err := g.auth.Session(ctx, c.Value)
	if err != nil || sess == nil {
		return nil
	}
	return sess
}

func (g *Gate) isProtected(path string) bool {
	for _, prefix := range g.protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func isAuthPage(path string) bool {
	return path == LoginPath || path == RegisterPath
}

// Pages returns middleware implementing the navigation state machine:
//
//	protected path:  unauthenticated          -> redirect to /login
//	                 authenticated unverified -> redirect to /auth/verify-email
//	                 authenticated verified   -> allow
//	auth page:       unauthenticated          -> allow
//	                 authenticated unverified -> redirect to /auth/verify-email
//	                 authenticated verified   -> redirect to /dashboard
//	verify page:     any authenticated        -> allow (no redirect loop)
//	                 unauthenticated          -> redirect to /login
//
// Paths outside those classes pass through untouched.
func (g *Gate) Pages(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		switch {
		case path == VerifyEmailPath:
			if g.resolve(r) == nil {
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

		case g.isProtected(path):
			sess := g.resolve(r)
			switch {
			case sess == nil:
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			case !sess.EmailVerified:
				http.Redirect(w, r, VerifyEmailPath, http.StatusFound)
				return
			}

		case isAuthPage(path):
			sess := g.resolve(r)
			switch {
			case sess == nil:
				// Render the form.
			case !sess.EmailVerified:
				http.Redirect(w, r, VerifyEmailPath, http.StatusFound)
				return
			default:
				http.Redirect(w, r, DashboardPath, http.StatusFound)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

type sessionContextKey struct{}

// RequireSession returns middleware for API routes. Unauthenticated or
// unverified identities receive a 401 rather than a redirect. The resolved
// session is placed in the request context for handlers.
func (g *Gate) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := g.resolve(r)
		if sess == nil || !sess.EmailVerified {
			if simtrack.HasState(r.Context()) {
				simtrack.SetError(r, simtrack.ErrUnauthorized)
			} else {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"Authentication required"}`))
			}
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext retrieves the session placed by RequireSession.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*Session)
	return sess, ok
}
