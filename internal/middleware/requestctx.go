package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/dynamo-works/claude-engine/internal/services/audit"
	"github.com/dynamo-works/claude-engine/internal/services/scanner"
	"github.com/google/uuid"
)

type ctxKey int

const requestContextKey ctxKey = 0

// RequestContext is the per-request state threaded through the pipeline.
// It is created at ingress and owned exclusively by its request.
type RequestContext struct {
	RequestID   string
	StartTime   time.Time
	UserID      string
	UserEmail   string
	DisplayName string
	Role        string
	APIKeyID    string
	AuthMethod  string
	PromptText  string
	Scan        *scanner.Result
	Audit       *audit.Context
}

// RequestID installs the correlation ID: honor X-Request-Id when present,
// otherwise generate one. The ID is echoed on every response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}

		rc := &RequestContext{
			RequestID: id,
			StartTime: time.Now(),
		}
		w.Header().Set("X-Request-Id", id)

		ctx := context.WithValue(r.Context(), requestContextKey, rc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestContext returns the pipeline state for r, or nil outside the
// chain.
func GetRequestContext(r *http.Request) *RequestContext {
	rc, _ := r.Context().Value(requestContextKey).(*RequestContext)
	return rc
}
