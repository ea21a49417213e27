// Package ratelimit provides admission control middleware for the
// authentication endpoints.
//
// A Limiter counts requests per key in a shared store and rejects with
// 429 (Too Many Requests) once the count for the active window exceeds the
// limit. Key dimensions (client identity, request path) are added via
// functional options. Responses carry X-RateLimit-Limit, X-RateLimit-Remaining
// and X-RateLimit-Reset headers, plus Retry-After on rejection.
//
//	st := store.NewMemory(0)
//	defer st.Close()
//	r.With(ratelimit.ForRule(st, ratelimit.SignIn)).Post("/api/auth/signin", signin)
//
// For multi-instance deployments use the Redis store. The in-memory store is
// only suitable for a single instance.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simtrack/simtrack"
	"github.com/simtrack/simtrack/store"
)

// HeaderMode controls when rate limit headers are included in responses.
type HeaderMode int

const (
	// HeadersAlways includes rate limit headers on all responses (default).
	HeadersAlways HeaderMode = iota

	// HeadersOnLimitExceeded includes rate limit headers only on 429 responses.
	HeadersOnLimitExceeded

	// HeadersNever never includes rate limit headers in any response.
	HeadersNever
)

// KeyFunc extracts one dimension of the rate limiting key from a request.
type KeyFunc func(*http.Request) string

// Limiter implements rate limiting middleware.
type Limiter struct {
	store      store.Store
	limit      int64
	window     time.Duration
	name       string
	keyFns     []KeyFunc
	headerMode HeaderMode
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithName sets an identifier prepended to all keys. Use it to keep
// counters separate when layering multiple limiters over the same store.
func WithName(name string) Option {
	return func(l *Limiter) {
		l.name = name
	}
}

// WithClientIP adds the resolved client identity to the rate limiting key.
// Resolution walks the forwarded-IP probes in order (see ResolveClient).
// When no probe succeeds, a unique per-request identity is substituted so
// unresolvable clients are never funneled into one shared bucket. The
// accepted trade-off is that limiting is effectively disabled for such
// clients; the alternative would let one misbehaving unidentifiable client
// exhaust the budget of all of them.
func WithClientIP() Option {
	return func(l *Limiter) {
		l.keyFns = append(l.keyFns, func(r *http.Request) string {
			if ip, ok := ResolveClient(r); ok {
				return ip
			}
			return "anon-" + uuid.NewString()
		})
	}
}

// WithPath adds the request path to the rate limiting key.
func WithPath() Option {
	return func(l *Limiter) {
		l.keyFns = append(l.keyFns, func(r *http.Request) string {
			return r.URL.Path
		})
	}
}

// WithKeyFunc adds a custom key dimension.
func WithKeyFunc(fn KeyFunc) Option {
	return func(l *Limiter) {
		l.keyFns = append(l.keyFns, fn)
	}
}

// WithHeaderMode configures when rate limit headers are included in responses.
func WithHeaderMode(mode HeaderMode) Option {
	return func(l *Limiter) {
		l.headerMode = mode
	}
}

// New creates a rate limiter with the given store, limit, and window.
// With no key options the key is the limiter name alone, which makes the
// limit global; most callers want WithClientIP.
func New(st store.Store, limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		store:      st,
		limit:      int64(limit),
		window:     window,
		headerMode: HeadersAlways,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) key(r *http.Request) string {
	var sb strings.Builder
	sb.WriteString(l.name)
	for _, fn := range l.keyFns {
		if sb.Len() > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(fn(r))
	}
	return sb.String()
}

// Handler returns the rate limiting middleware.
// Sets X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset
// according to the header mode, and Retry-After (seconds until the window
// resets) when the request is rejected.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		useState := simtrack.HasState(ctx)

		count, ttl, err := l.store.Increment(ctx, l.key(r), l.window)
		if err != nil {
			if useState {
				simtrack.SetError(r, simtrack.ErrInternal.With("Rate limit check failed"))
			} else {
				http.Error(w, "Rate limit check failed", http.StatusInternalServerError)
			}
			return
		}

		remaining := max(0, l.limit-count)
		resetTime := time.Now().Add(ttl).Unix()
		exceeded := count > l.limit

		setHeader := func(key, value string) {
			if useState {
				simtrack.SetHeader(r, key, value)
			} else {
				w.Header().Set(key, value)
			}
		}

		if l.headerMode == HeadersAlways || (l.headerMode == HeadersOnLimitExceeded && exceeded) {
			setHeader("X-RateLimit-Limit", strconv.FormatInt(l.limit, 10))
			setHeader("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			setHeader("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))
		}

		if exceeded {
			setHeader("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			if useState {
				simtrack.SetError(r, simtrack.ErrRateLimited)
			} else {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}
