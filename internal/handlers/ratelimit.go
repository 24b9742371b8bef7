package handlers

import (
	"net"
	"net/http"
	"strings"
)

// RateLimiter guards the credential endpoints against brute forcing.
type RateLimiter interface {
	Allow(key string) bool
}

// allowRequest checks the caller against the limiter. Limiting is keyed by
// scope plus client IP so a login storm cannot exhaust the signup budget.
func allowRequest(limiter RateLimiter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}

	key := clientIP(r)
	if scope != "" {
		key = scope + ":" + key
	}
	return limiter.Allow(key)
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
