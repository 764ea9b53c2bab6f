package gateway

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/flemzord/ragraft/internal/security"
	"github.com/go-chi/chi/v5"
)

// authMiddleware returns a chi-compatible middleware that validates Bearer token
// or Basic auth credentials using constant-time comparison. auth is read on
// every request so reloaded credentials apply immediately. Failures are
// audited and, when a RateLimiter is provided, attempts are limited per
// client address.
func authMiddleware(auth func() AuthConfig, auditLogger *security.AuditLogger, rateLimiter *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rateLimiter != nil {
				if err := rateLimiter.Allow("auth:" + clientIP(r)); err != nil {
					http.Error(w, "too many requests", http.StatusTooManyRequests)
					return
				}
			}

			cfg := auth()
			header := r.Header.Get("Authorization")
			if header == "" {
				emitAuthFailure(auditLogger, r, "missing authorization header")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if cfg.BearerToken != "" {
				if after, ok := strings.CutPrefix(header, "Bearer "); ok && constantTimeEqual(after, cfg.BearerToken) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if cfg.BasicUser != "" && cfg.BasicPass != "" {
				user, pass, ok := r.BasicAuth()
				if ok && constantTimeEqual(user, cfg.BasicUser) && constantTimeEqual(pass, cfg.BasicPass) {
					next.ServeHTTP(w, r)
					return
				}
			}

			emitAuthFailure(auditLogger, r, "invalid credentials")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}

// rateLimit limits requests per client address under the given bucket,
// and per public code when the route carries one. Without a limiter it is
// a pass-through.
func (g *Gateway) rateLimit(bucket string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := g.svc.Limiter
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			keys := []string{bucket + ":" + clientIP(r)}
			if code := chi.URLParam(r, "code"); code != "" {
				keys = append(keys, bucket+":code:"+code)
			}
			for _, key := range keys {
				if err := limiter.Allow(key); err == nil {
					continue
				}
				g.svc.Audit.Log(security.AuditEvent{
					Type:   security.EventRateLimit,
					Remote: clientIP(r),
					Target: r.URL.Path,
					Detail: key,
				})
				if wait := limiter.RetryAfter(key); wait > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				}
				writeError(w, http.StatusTooManyRequests, kindRateLimited, "Too many requests.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// emitAuthFailure logs a failed authentication to the audit logger.
func emitAuthFailure(logger *security.AuditLogger, r *http.Request, detail string) {
	logger.Log(security.AuditEvent{
		Type:   security.EventAuthFailure,
		Remote: clientIP(r),
		Target: r.URL.Path,
		Detail: detail,
		Metadata: map[string]string{
			"method": r.Method,
		},
	})
}

// clientIP returns the host part of the request's remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// constantTimeEqual compares two strings in constant time.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
