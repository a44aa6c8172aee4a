package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/flemzord/tdsta/internal/security"
)

// authMiddleware validates Bearer token or Basic auth credentials using
// constant-time comparison. Attempts draw from the "auth" rate limit bucket
// and every outcome is audited.
func authMiddleware(cfg AuthConfig, audit *security.AuditLogger, limiter *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := limiter.AllowKey(security.BucketAuth, clientIP(r)); err != nil {
				emitAuthEvent(audit, security.EventRateLimit, r, security.BucketAuth)
				writeDetail(w, http.StatusTooManyRequests, "Too many requests")
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				emitAuthEvent(audit, security.EventAuthFailure, r, "missing authorization header")
				unauthorized(w, cfg)
				return
			}

			if cfg.BearerToken != "" {
				if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
					if constantTimeEqual(after, cfg.BearerToken) {
						emitAuthEvent(audit, security.EventAuthSuccess, r, "bearer")
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			if cfg.BasicUser != "" && cfg.BasicPass != "" {
				user, pass, ok := r.BasicAuth()
				if ok && constantTimeEqual(user, cfg.BasicUser) && constantTimeEqual(pass, cfg.BasicPass) {
					emitAuthEvent(audit, security.EventAuthSuccess, r, "basic")
					next.ServeHTTP(w, r)
					return
				}
			}

			emitAuthEvent(audit, security.EventAuthFailure, r, "invalid credentials")
			unauthorized(w, cfg)
		})
	}
}

func unauthorized(w http.ResponseWriter, cfg AuthConfig) {
	if cfg.BasicUser != "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="tdsta"`)
	}
	writeDetail(w, http.StatusUnauthorized, "Unauthorized")
}

// emitAuthEvent logs an auth event to the audit logger if available.
func emitAuthEvent(logger *security.AuditLogger, eventType security.EventType, r *http.Request, detail string) {
	logger.Log(security.AuditEvent{
		Type:       eventType,
		RemoteAddr: r.RemoteAddr,
		Method:     r.Method,
		Path:       r.URL.Path,
		Detail:     detail,
	})
}

// constantTimeEqual compares two strings in constant time.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
