package api

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/tendant/simple-widget/pkg/simplewidget/ratelimit"
)

// ClientIP extracts the caller's address for rate limiting. Proxy headers
// are consulted in trust order before falling back to the socket address.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First address is the originating client
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// KeyFunc derives the rate limit identifier for a request.
type KeyFunc func(r *http.Request) string

// RateLimit enforces a fixed-window limit per identifier and scope. The
// scope keeps independent routes from sharing one counter.
func RateLimit(limiter ratelimit.Limiter, scope string, limit int, window time.Duration, key KeyFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := scope + ":" + key(r)
			if !limiter.Allow(identifier, limit, window) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, map[string]interface{}{
					"error": map[string]interface{}{
						"code":    "rate_limit_exceeded",
						"message": fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %s.", limit, window),
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets standard hardening headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// EmbedHeaders relaxes framing restrictions on the public widget routes
// so the widget can be embedded cross-origin.
func EmbedHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		next.ServeHTTP(w, r)
	})
}
