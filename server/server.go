// Package server assembles the HTTP surface of the Sims Challenge Tracker
// backend: the request interceptor ordering (response wrapper, admission
// control, CSRF verification, session gating) and the API handlers that
// forward validated input to the hosted backend.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nhalm/canonlog"

	"github.com/simtrack/simtrack"
	"github.com/simtrack/simtrack/csrf"
	"github.com/simtrack/simtrack/gate"
	"github.com/simtrack/simtrack/provider"
	"github.com/simtrack/simtrack/ratelimit"
	"github.com/simtrack/simtrack/slo"
	"github.com/simtrack/simtrack/store"
)

const maxBodyBytes = 1 << 20

// Server wires the middleware layers and handlers together.
type Server struct {
	cfg    Config
	auth   provider.AuthProvider
	data   provider.DataStore
	limits store.Store
	guard  *csrf.Guard
	gate   *gate.Gate
}

// New creates a Server. The rate-limit store is injected so its capacity
// and eviction behavior are testable in isolation; it is shared by every
// limiter the router installs.
func New(cfg Config, auth provider.AuthProvider, data provider.DataStore, limits store.Store) *Server {
	mode := csrf.ModeFormat
	if cfg.CSRFStrict {
		mode = csrf.ModeBound
	}

	return &Server{
		cfg:    cfg,
		auth:   auth,
		data:   data,
		limits: limits,
		guard: csrf.New(csrf.Config{
			Secure:         cfg.SecureCookies,
			Mode:           mode,
			ExemptPrefixes: []string{"/api/auth/reset-password"},
		}),
		gate: gate.New(
			sessionLookup{auth},
			gate.WithCookieName(cfg.SessionCookieName),
		),
	}
}

// sessionLookup adapts the AuthProvider to the gate's Authenticator.
type sessionLookup struct {
	auth provider.AuthProvider
}

func (l sessionLookup) Session(ctx context.Context, token string) (*gate.Session, error) {
	u, err := l.auth.Session(ctx, token)
	if err != nil {
		return nil, err
	}
	return &gate.Session{UID: u.UID, EmailVerified: u.EmailVerified}, nil
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(simtrack.Handler(simtrack.WithCanonlog(), simtrack.WithSLOs()))
	r.Use(simtrack.MaxBodySize(maxBodyBytes))

	r.Route("/api", func(api chi.Router) {
		api.With(slo.Track(slo.Interactive)).Get("/csrf-token", s.guard.IssueHandler)

		api.Route("/auth", func(ar chi.Router) {
			ar.Use(slo.Track(slo.Auth))
			ar.Use(ratelimit.ForAuthPrefix(s.limits))
			ar.Use(s.guard.Verify)

			ar.With(ratelimit.ForRule(s.limits, ratelimit.SignIn)).
				Post("/signin", s.handleSignIn)
			ar.With(ratelimit.ForRule(s.limits, ratelimit.SignUp)).
				Post("/signup", s.handleSignUp)
			ar.With(ratelimit.ForRule(s.limits, ratelimit.PasswordReset)).
				Post("/reset-password", s.handleResetPassword)
			ar.With(ratelimit.ForRule(s.limits, ratelimit.CredentialValidation)).
				Post("/validate-credentials", s.handleValidateCredentials)
			ar.Post("/signout", s.handleSignOut)
		})

		api.Group(func(pr chi.Router) {
			pr.Use(slo.Track(slo.Records))
			pr.Use(s.gate.RequireSession)
			pr.Use(s.guard.Verify)

			pr.Route("/challenges", func(cr chi.Router) {
				cr.Get("/", s.handleListChallenges)
				cr.Post("/", s.handleCreateChallenge)
				cr.Get("/{id}", s.handleGetChallenge)
				cr.Put("/{id}", s.handleUpdateChallenge)
				cr.Delete("/{id}", s.handleDeleteChallenge)
			})

			pr.Route("/sims", func(sr chi.Router) {
				sr.Get("/", s.handleListSims)
				sr.Post("/", s.handleCreateSim)
				sr.Get("/{id}", s.handleGetSim)
				sr.Put("/{id}", s.handleUpdateSim)
				sr.Delete("/{id}", s.handleDeleteSim)
				sr.Post("/{id}/link", s.handleLinkSim)
				sr.Delete("/{id}/link", s.handleUnlinkSim)
			})

			pr.Get("/preferences", s.handleGetPreferences)
			pr.Put("/preferences", s.handlePutPreferences)
		})
	})

	// Navigation routes exist so the gate's redirect machine is observable;
	// the pages themselves are rendered client-side.
	// The gate may make a provider round trip per navigation, so pages share
	// the auth tier.
	r.Group(func(pg chi.Router) {
		pg.Use(slo.Track(slo.Auth))
		pg.Use(s.gate.Pages)
		for _, path := range []string{
			"/", gate.DashboardPath, "/challenges", "/challenges/*", "/sims", "/sims/*",
			"/profile", "/settings", gate.LoginPath, gate.RegisterPath, gate.VerifyEmailPath,
		} {
			pg.Get(path, pageShell)
		}
	})

	return r
}

func pageShell(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<!doctype html><html><body><div id=\"app\"></div></body></html>"))
}

// upstreamError translates backend failures into client responses.
// Not-found maps through; everything else is logged and becomes a generic
// 500 so provider details never leak.
func upstreamError(r *http.Request, err error) {
	if errors.Is(err, provider.ErrNotFound) {
		simtrack.SetError(r, simtrack.ErrNotFound)
		return
	}
	canonlog.ErrorAdd(r.Context(), err)
	simtrack.SetError(r, simtrack.ErrInternal)
}
