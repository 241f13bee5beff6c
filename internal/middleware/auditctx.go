package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/dynamo-works/claude-engine/internal/apierror"
	"github.com/dynamo-works/claude-engine/internal/services/audit"
	"github.com/dynamo-works/claude-engine/internal/services/classifier"
	"github.com/tidwall/gjson"
)

// AuditSetup computes the per-request audit context: prompt text and hash,
// preview, source, and category. It writes nothing; the later stages and the
// proxy handler decide the entry's fate.
func AuditSetup(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := GetRequestContext(r)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			apierror.Write(w, rc.RequestID, apierror.InvalidRequest("Failed to read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		rc.PromptText = audit.ExtractPromptText(body)
		source := audit.DetectSource(r.Header.Get("User-Agent"))
		cls := classifier.Classify(rc.PromptText, source)

		rc.Audit = &audit.Context{
			RequestID:  rc.RequestID,
			UserID:     rc.UserID,
			UserEmail:  rc.UserEmail,
			Role:       rc.Role,
			Model:      gjson.GetBytes(body, "model").String(),
			Category:   cls.Category,
			Source:     source,
			PromptHash: audit.HashPrompt(rc.PromptText),
			Preview:    audit.ExtractPreview(rc.PromptText),
			StartTime:  rc.StartTime,
		}

		next.ServeHTTP(w, r)
	})
}
