// Package middleware implements the HTTP-layer concerns shared by every
// hub route: security headers, CORS, request-id correlation, and the
// setup-required redirect that gates all traffic until bootstrap
// completes.
package middleware

import (
	"net/http"
)

const cspPolicy = "default-src 'self'; " +
	"script-src 'self'; " +
	"style-src 'self'; " +
	"frame-ancestors 'none'; " +
	"form-action 'self'"

const permissionsPolicy = "camera=(), microphone=(), geolocation=(), payment=()"

// SecurityHeaders sets the fixed security header set on every response.
// HSTS is added only when hstsEnabled is true, since it is unsafe to emit
// over plain HTTP deployments.
func SecurityHeaders(hstsEnabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", permissionsPolicy)
			h.Set("Content-Security-Policy", cspPolicy)
			if hstsEnabled {
				h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
