package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Logger emits one structured line per request. Health and metrics probes
// are skipped to reduce noise.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := NewStreamingResponseWriter(w)

			defer func() {
				requestID := ""
				if rc := GetRequestContext(r); rc != nil {
					requestID = rc.RequestID
				}
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.StatusCode()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote", r.RemoteAddr),
					zap.String("request_id", requestID),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
