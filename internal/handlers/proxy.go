package handlers

import (
	"context"
	"time"

	"github.com/dynamo-works/claude-engine/internal/middleware"
	"github.com/dynamo-works/claude-engine/internal/services/audit"
	"github.com/dynamo-works/claude-engine/internal/services/budget"
	"github.com/dynamo-works/claude-engine/internal/upstream"
	"go.uber.org/zap"
)

// Proxy bundles everything the two upstream surfaces need.
type Proxy struct {
	upstream         *upstream.Client
	budgets          *budget.Service
	audits           *audit.Service
	defaultMaxTokens int
	logger           *zap.Logger
}

func NewProxy(client *upstream.Client, budgets *budget.Service, audits *audit.Service,
	defaultMaxTokens int, logger *zap.Logger) *Proxy {
	return &Proxy{
		upstream:         client,
		budgets:          budgets,
		audits:           audits,
		defaultMaxTokens: defaultMaxTokens,
		logger:           logger,
	}
}

// finishRequest runs the post-response writes: the usage ledger and the
// audit trail. The client has been served; nothing here may block or fail
// loudly.
func (p *Proxy) finishRequest(rc *middleware.RequestContext, model string,
	inputTokens, outputTokens int64, responsePreview, status string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("panic in post-response writes", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Failed calls consumed nothing; only the audit trail records them.
		if rc.UserID != "" && inputTokens+outputTokens > 0 {
			category := ""
			if rc.Audit != nil {
				category = rc.Audit.Category
			}
			p.budgets.RecordUsage(ctx, budget.UsageRecord{
				UserID:    rc.UserID,
				UserEmail: rc.UserEmail,
				Model:     model,
				InputTok:  inputTokens,
				OutputTok: outputTokens,
				Category:  category,
			}, rc.Role)
		}

		if rc.Audit != nil {
			entry := p.audits.BuildEntry(rc.Audit, audit.Options{
				Model:           model,
				InputTokens:     inputTokens,
				OutputTokens:    outputTokens,
				ResponsePreview: responsePreview,
				Status:          status,
			})
			p.audits.Commit(ctx, entry)
		}
	}()
}
