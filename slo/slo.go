// Package slo classifies routes by latency objective. Track sets the
// route's tier in the request context; the response middleware reads it
// after the handler finishes and logs slo_class and slo_status (PASS or
// FAIL) against the tier's target.
//
//	r.Use(simtrack.Handler(simtrack.WithCanonlog(), simtrack.WithSLOs()))
//	r.With(slo.Track(slo.Records)).Get("/api/challenges", list)
package slo

import (
	"context"
	"net/http"
	"time"
)

// Tier is a latency classification for a route.
type Tier string

const (
	// Interactive covers routes served entirely from this process, such as
	// page shells and token issuance.
	Interactive Tier = "interactive"

	// Records covers routes that make one round trip to the data store.
	Records Tier = "records"

	// Auth covers routes that call the identity provider, which is the
	// slowest upstream in the request path.
	Auth Tier = "auth"

	// custom is used for TrackWithTarget.
	custom Tier = "custom"
)

var targets = map[Tier]time.Duration{
	Interactive: 100 * time.Millisecond,
	Records:     500 * time.Millisecond,
	Auth:        1500 * time.Millisecond,
}

type configKey struct{}

type config struct {
	tier   Tier
	target time.Duration
}

// NewContext installs an empty tier holder. The response middleware calls
// this before the router runs so that Track, which executes downstream,
// can fill the holder in place and the middleware can read it after the
// handler returns. Same shape as chi's RouteContext.
func NewContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, configKey{}, &config{})
}

func set(r *http.Request, tier Tier, target time.Duration) *http.Request {
	if cfg, ok := r.Context().Value(configKey{}).(*config); ok {
		cfg.tier = tier
		cfg.target = target
		return r
	}
	ctx := context.WithValue(r.Context(), configKey{}, &config{tier: tier, target: target})
	return r.WithContext(ctx)
}

// Track sets a predefined tier for the route.
func Track(tier Tier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, set(r, tier, targets[tier]))
		})
	}
}

// TrackWithTarget sets a custom latency target. The tier is logged as
// "custom".
func TrackWithTarget(target time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, set(r, custom, target))
		})
	}
}

// FromContext returns the tier and target set by Track, if any.
func FromContext(ctx context.Context) (Tier, time.Duration, bool) {
	cfg, ok := ctx.Value(configKey{}).(*config)
	if !ok || cfg.tier == "" {
		return "", 0, false
	}
	return cfg.tier, cfg.target, true
}
