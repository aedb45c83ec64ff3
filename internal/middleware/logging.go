package middleware

import (
	"net/http"
	"time"

	"github.com/fittrack/apigw/internal/observability"
	"github.com/fittrack/apigw/internal/util"
)

// Logging returns a middleware that logs one line per request. The
// matched service is read back from the request info the dispatcher
// fills in.
func Logging(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			r = r.WithContext(util.ContextWithStartTime(r.Context(), start))
			r, info := util.EnsureRequestInfo(r)

			rw := util.NewStatusCapturingResponseWriter(w)

			next.ServeHTTP(rw, r)

			service := info.Service
			if service == "" {
				service = unmatchedService
			}

			fields := []observability.Field{
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("query", r.URL.RawQuery),
				observability.Int("status", rw.StatusCode),
				observability.Int("size", rw.Size),
				observability.Duration("duration", time.Since(start)),
				observability.String("remote_addr", ClientIP(r)),
				observability.String("user_agent", r.UserAgent()),
				observability.String("route", info.Route),
				observability.String("service", service),
			}

			//nolint:contextcheck // request context carries the request ID
			reqLogger := logger.WithContext(r.Context())
			if rw.StatusCode >= http.StatusInternalServerError {
				reqLogger.Warn("http request", fields...)
				return
			}
			reqLogger.Info("http request", fields...)
		})
	}
}
