// Package csrf mitigates cross-site request forgery on mutating API calls.
//
// A Guard issues random tokens, delivers them in a protected cookie, and
// expects them echoed back in a request header on subsequent mutating
// requests. Two validation modes are supported:
//
//   - ModeFormat accepts any token of the correct hex format and length.
//     This reproduces the existing contract: it authenticates that "a token
//     was presented", not that the token belongs to this session.
//   - ModeBound additionally requires the token to be one this process
//     issued within the TTL. This is the recommended hardening.
package csrf

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/simtrack/simtrack"
)

const (
	// DefaultTokenLength is the token size in bytes; the hex encoding on
	// the wire is twice this many characters.
	DefaultTokenLength = 32

	// DefaultTTL is the token cookie lifetime.
	DefaultTTL = time.Hour

	// DefaultCookieName is the cookie the token is delivered in.
	DefaultCookieName = "csrf_token"

	// DefaultHeaderName is the request header checked first on validation.
	DefaultHeaderName = "X-CSRF-Token"

	// DefaultCapacity bounds the issued-token cache used by ModeBound.
	DefaultCapacity = 100000
)

// Mode selects the validation strategy.
type Mode int

const (
	// ModeFormat validates token shape only.
	ModeFormat Mode = iota

	// ModeBound validates token shape and issuance.
	ModeBound
)

// Config configures a Guard. Zero values take the package defaults.
type Config struct {
	TokenLength    int
	TTL            time.Duration
	CookieName     string
	HeaderName     string
	ExemptPrefixes []string
	Secure         bool
	Mode           Mode
	Capacity       int
}

// Guard issues and validates anti-forgery tokens.
type Guard struct {
	cfg    Config
	issued *tokenCache
}

// New creates a Guard from the given configuration.
func New(cfg Config) *Guard {
	if cfg.TokenLength <= 0 {
		cfg.TokenLength = DefaultTokenLength
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}

	g := &Guard{cfg: cfg}
	if cfg.Mode == ModeBound {
		g.issued = newTokenCache(cfg.Capacity, cfg.TTL)
	}
	return g
}

// Issue mints a new token, sets it as an HttpOnly, SameSite=Strict cookie
// on the response, and returns it so the handler can expose it to the client.
func (g *Guard) Issue(w http.ResponseWriter) (string, error) {
	buf := make([]byte, g.cfg.TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   g.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	if g.issued != nil {
		g.issued.add(token)
	}
	return token, nil
}

// IssueHandler serves GET /api/csrf-token.
func (g *Guard) IssueHandler(w http.ResponseWriter, r *http.Request) {
	token, err := g.Issue(w)
	if err != nil {
		simtrack.SetError(r, simtrack.ErrInternal)
		return
	}
	simtrack.SetResponse(r, http.StatusOK, map[string]string{"csrfToken": token})
}

// Verify returns middleware that validates the anti-forgery token on
// mutating requests. GET, HEAD and OPTIONS are always exempt, as are the
// configured path prefixes. The token is taken from the header first, then
// from the cookie. Failures produce a 403 with a generic body; the reason a
// token was rejected is never surfaced.
func (g *Guard) Verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		for _, prefix := range g.cfg.ExemptPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		token := r.Header.Get(g.cfg.HeaderName)
		if token == "" {
			if c, err := r.Cookie(g.cfg.CookieName); err == nil {
				token = c.Value
			}
		}

		if !g.valid(token) {
			if simtrack.HasState(r.Context()) {
				simtrack.SetError(r, simtrack.ErrCSRF)
			} else {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"Invalid CSRF token"}`))
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *Guard) valid(token string) bool {
	if !validHex(token, 2*g.cfg.TokenLength) {
		return false
	}
	if g.issued != nil {
		return g.issued.has(token)
	}
	return true
}

// validHex reports whether s is exactly n lowercase-or-uppercase hex
// characters. The format gate runs before any semantic check.
func validHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
