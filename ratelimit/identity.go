package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// Probe attempts to resolve the client identity from one source.
// It returns the identity and whether the source could supply one.
type Probe func(*http.Request) (string, bool)

// DefaultProbes returns the ordered list of client identity sources:
// the CDN-provided header, the standard forwarded-IP headers, then the
// transport-level remote address. The first probe that succeeds wins.
func DefaultProbes() []Probe {
	return []Probe{
		headerProbe("CF-Connecting-IP"),
		forwardedForProbe,
		headerProbe("X-Real-IP"),
		remoteAddrProbe,
	}
}

// ResolveClient walks the default probe list and returns the first
// successfully resolved identity. The second return value is false when
// no source could supply one.
func ResolveClient(r *http.Request) (string, bool) {
	for _, probe := range DefaultProbes() {
		if ip, ok := probe(r); ok {
			return ip, true
		}
	}
	return "", false
}

func headerProbe(name string) Probe {
	return func(r *http.Request) (string, bool) {
		v := strings.TrimSpace(r.Header.Get(name))
		return v, v != ""
	}
}

// forwardedForProbe takes the first hop of X-Forwarded-For, the address
// closest to the original client.
func forwardedForProbe(r *http.Request) (string, bool) {
	v := r.Header.Get("X-Forwarded-For")
	if v == "" {
		return "", false
	}
	first := strings.TrimSpace(strings.SplitN(v, ",", 2)[0])
	return first, first != ""
}

func remoteAddrProbe(r *http.Request) (string, bool) {
	if r.RemoteAddr == "" {
		return "", false
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr, true
	}
	return ip, true
}
