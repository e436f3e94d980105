package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vencura/vencura/internal/logger"
	"github.com/vencura/vencura/internal/metrics"
)

// Instrument logs each request and records its latency under the matched
// route pattern, so path parameters do not explode label cardinality.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := NewStatusRecorder(w)

			logger.Debug(r.Context(), "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"headers", RedactHeaders(r.Header),
			)

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			elapsed := time.Since(start)
			m.ObserveHTTP(r.Method, route, rec.StatusCode, elapsed)

			logger.Info(r.Context(), "request completed",
				"method", r.Method,
				"route", route,
				"status", rec.StatusCode,
				"duration_ms", elapsed.Milliseconds(),
				"client_ip", ClientIP(r),
			)
		})
	}
}
