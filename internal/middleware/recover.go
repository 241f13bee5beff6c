package middleware

import (
	"net/http"

	"github.com/dynamo-works/claude-engine/internal/apierror"
	"go.uber.org/zap"
)

// Recover turns handler panics into the canonical internal_error body
// instead of a dropped connection.
func Recover(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					requestID := ""
					if rc := GetRequestContext(r); rc != nil {
						requestID = rc.RequestID
					}
					logger.Error("panic in handler",
						zap.String("request_id", requestID),
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec))
					apierror.Write(w, requestID, apierror.Internal())
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
