package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Logging tags the request context with method and path, then writes one
// access line when the handler returns. The line carries the matched chi
// route so paths with ids aggregate.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			meter := &meteredWriter{ResponseWriter: w}
			r = r.WithContext(ctx)

			next.ServeHTTP(meter, r)

			fields := map[string]any{
				"status":      meter.code(),
				"bytes":       meter.written,
				"duration_ms": time.Since(started).Milliseconds(),
			}
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					fields["route"] = pattern
				}
			}
			done := logg.WithFields(ctx, fields)
			if meter.code() >= http.StatusInternalServerError {
				logg.Warn(done, "request.complete")
				return
			}
			logg.Info(done, "request.complete")
		})
	}
}

type meteredWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (m *meteredWriter) WriteHeader(code int) {
	if m.status == 0 {
		m.status = code
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *meteredWriter) Write(b []byte) (int, error) {
	if m.status == 0 {
		m.status = http.StatusOK
	}
	n, err := m.ResponseWriter.Write(b)
	m.written += n
	return n, err
}

func (m *meteredWriter) code() int {
	if m.status == 0 {
		return http.StatusOK
	}
	return m.status
}
