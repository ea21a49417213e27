package ratelimit

import (
	"net/http"
	"time"

	"github.com/simtrack/simtrack/store"
)

// Rule describes the admission policy for one endpoint class.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Fixed per-endpoint-class admission rules.
var (
	// SignIn allows 5 attempts per client per 15 minutes.
	SignIn = Rule{Name: "signin", Limit: 5, Window: 15 * time.Minute}

	// SignUp allows 3 account creations per client per hour.
	SignUp = Rule{Name: "signup", Limit: 3, Window: time.Hour}

	// PasswordReset allows 3 reset emails per client per hour.
	PasswordReset = Rule{Name: "reset", Limit: 3, Window: time.Hour}

	// CredentialValidation allows 10 checks per client per minute.
	CredentialValidation = Rule{Name: "validate", Limit: 10, Window: time.Minute}

	// AuthTraffic covers all auth-prefixed traffic: 10 requests per
	// client+path per 10 seconds, sliding.
	AuthTraffic = Rule{Name: "auth", Limit: 10, Window: 10 * time.Second}
)

// ForRule builds middleware for an endpoint class, keyed by client identity.
func ForRule(st store.Store, rule Rule, opts ...Option) func(http.Handler) http.Handler {
	base := []Option{WithName(rule.Name), WithClientIP()}
	return New(st, rule.Limit, rule.Window, append(base, opts...)...).Handler
}

// ForAuthPrefix builds the generic limiter applied across the auth route
// prefix, keyed by client identity and path.
func ForAuthPrefix(st store.Store) func(http.Handler) http.Handler {
	return New(st, AuthTraffic.Limit, AuthTraffic.Window,
		WithName(AuthTraffic.Name),
		WithClientIP(),
		WithPath(),
	).Handler
}
