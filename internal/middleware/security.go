package middleware

import (
	"net/http"
)

// SecurityHeaders adds security-related HTTP headers to API responses.
// The bridge serves JSON only, so nothing may be framed, sniffed or cached.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		// No scripts, styles or frames: responses are data, never documents
		csp := "default-src 'none'; " +
			"frame-ancestors 'none'; " +
			"form-action 'none'; " +
			"base-uri 'none'"
		w.Header().Set("Content-Security-Policy", csp)

		next.ServeHTTP(w, r)
	})
}
