package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/dynamo-works/claude-engine/internal/apierror"
	"github.com/dynamo-works/claude-engine/internal/catalog"
	"go.uber.org/zap"
)

// ModelRouter resolves the requested model through the caller's role policy
// and rewrites the request body with the outcome. Downgrades surface via
// the X-Model-Downgraded header.
func ModelRouter(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := GetRequestContext(r)

			body, err := io.ReadAll(r.Body)
			if err != nil {
				apierror.Write(w, rc.RequestID, apierror.InvalidRequest("Failed to read request body"))
				return
			}

			var payload map[string]json.RawMessage
			if err := json.Unmarshal(body, &payload); err != nil {
				apierror.Write(w, rc.RequestID, apierror.InvalidRequest("Request body must be a JSON object"))
				return
			}

			requested := ""
			if raw, ok := payload["model"]; ok {
				_ = json.Unmarshal(raw, &requested)
			}

			res := catalog.ResolveModel(requested, rc.Role)
			if resolved, err := json.Marshal(res.ResolvedModel); err == nil {
				payload["model"] = resolved
			}

			if res.Downgraded {
				w.Header().Set("X-Model-Downgraded", "true")
				logger.Info("model downgraded",
					zap.String("request_id", rc.RequestID),
					zap.String("requested", requested),
					zap.String("resolved", res.ResolvedModel),
					zap.String("role", res.EffectiveRole))
			}

			rewritten, err := json.Marshal(payload)
			if err != nil {
				apierror.Write(w, rc.RequestID, apierror.Internal())
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(rewritten))
			r.ContentLength = int64(len(rewritten))

			next.ServeHTTP(w, r)
		})
	}
}
