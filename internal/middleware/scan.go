package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/dynamo-works/claude-engine/internal/apierror"
	"github.com/dynamo-works/claude-engine/internal/models"
	"github.com/dynamo-works/claude-engine/internal/services/alert"
	"github.com/dynamo-works/claude-engine/internal/services/audit"
	"github.com/dynamo-works/claude-engine/internal/services/scanner"
	"go.uber.org/zap"
)

// SensitiveScan scans the prompt text extracted by the audit stage and blocks
// on any high-severity finding. Medium findings warn via header and proceed.
// Either way an alert is published fire-and-forget, and a block leaves an
// audit entry with status blocked.
func SensitiveScan(alerts *alert.Publisher, audits *audit.Service, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := GetRequestContext(r)

			result := scanner.ScanText(rc.PromptText)
			rc.Scan = &result

			if len(result.Findings) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			actx := alert.Ctx{
				RequestID: rc.RequestID,
				UserID:    rc.UserID,
				UserEmail: rc.UserEmail,
				Route:     r.URL.Path,
			}

			if result.HasHighSeverity {
				logger.Warn("request blocked by sensitive-data scan",
					zap.String("request_id", rc.RequestID),
					zap.String("user_id", rc.UserID),
					zap.Int("findings", len(result.Findings)))
				alerts.Publish(alert.Build("sensitive_data_blocked", actx, result.Findings))
				commitBlockedEntry(rc, audits, logger)
				apierror.Write(w, rc.RequestID,
					apierror.SensitiveDataBlocked(scanner.BlockMessage(result.Findings)))
				return
			}

			w.Header().Set("X-Sensitive-Data-Warning", scanner.WarningMessage(result.Findings))
			alerts.Publish(alert.Build("sensitive_data_warning", actx, result.Findings))
			next.ServeHTTP(w, r)
		})
	}
}

// commitBlockedEntry records the audit trail for a blocked request. The
// client is about to receive the rejection; the write must not delay it.
func commitBlockedEntry(rc *RequestContext, audits *audit.Service, logger *zap.Logger) {
	if rc.Audit == nil {
		return
	}
	entry := audits.BuildEntry(rc.Audit, audit.Options{Status: models.AuditStatusBlocked})
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic committing audit entry", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		audits.Commit(ctx, entry)
	}()
}
