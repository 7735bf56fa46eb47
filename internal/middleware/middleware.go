package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs every completed request through logrus.
// Health probes are logged at debug level.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		entry := log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     status,
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).Round(time.Microsecond),
			"remote":     getIP(r),
			"request_id": chimw.GetReqID(r.Context()),
		})

		switch {
		case status >= http.StatusInternalServerError:
			entry.Warn("[HTTP] Request failed")
		case r.URL.Path == "/health":
			entry.Debug("[HTTP] Request")
		default:
			entry.Info("[HTTP] Request")
		}
	})
}
