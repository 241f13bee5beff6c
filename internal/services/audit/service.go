package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/dynamo-works/claude-engine/internal/models"
	"github.com/dynamo-works/claude-engine/internal/services/budget"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PreviewMaxLen caps stored prompt and response previews.
const PreviewMaxLen = 200

// Context is the per-request audit state assembled before the upstream call
// and committed after the response.
type Context struct {
	RequestID  string
	UserID     string
	UserEmail  string
	Role       string
	Model      string
	Category   string
	Source     string
	PromptHash string
	Preview    string
	StartTime  time.Time
}

// Options carries the post-response facts needed to finish an entry.
type Options struct {
	Model           string
	InputTokens     int64
	OutputTokens    int64
	ResponsePreview string
	Status          string
}

// ExtractPromptText flattens a messages-shaped request body into plain text:
// the optional top-level system string, then each message's string content
// or the text of its text blocks, newline-joined.
func ExtractPromptText(body []byte) string {
	var parts []string

	if sys := gjson.GetBytes(body, "system"); sys.Type == gjson.String {
		parts = append(parts, sys.String())
	}

	gjson.GetBytes(body, "messages").ForEach(func(_, msg gjson.Result) bool {
		content := msg.Get("content")
		switch {
		case content.Type == gjson.String:
			parts = append(parts, content.String())
		case content.IsArray():
			content.ForEach(func(_, block gjson.Result) bool {
				if block.Get("type").String() == "text" {
					parts = append(parts, block.Get("text").String())
				}
				return true
			})
		}
		return true
	})

	return strings.Join(parts, "\n")
}

// HashPrompt returns the hex SHA-256 digest of the prompt text.
func HashPrompt(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

var cliAgents = []string{"curl", "cli", "node", "python-requests", "httpie"}

// DetectSource classifies the caller from its user agent.
func DetectSource(userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, marker := range cliAgents {
		if strings.Contains(ua, marker) {
			return models.SourceCLI
		}
	}
	return models.SourceWeb
}

var previewRedactTriggers = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
	regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
	regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
}

// ExtractPreview returns a short, safe excerpt of text. Anything that looks
// like a credential or identifier collapses the whole preview.
func ExtractPreview(text string) string {
	for _, re := range previewRedactTriggers {
		if re.MatchString(text) {
			return "[REDACTED]"
		}
	}
	if len(text) <= PreviewMaxLen {
		return text
	}
	// Cut on a rune boundary; a byte slice could split a multi-byte rune.
	runes := []rune(text)
	if len(runes) <= PreviewMaxLen {
		return text
	}
	return string(runes[:PreviewMaxLen]) + "…"
}

// Service writes the audit trail. A nil db reduces Commit to the structured
// log line.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// BuildEntry assembles the full audit record from the request context and
// the post-response facts.
func (s *Service) BuildEntry(actx *Context, opts Options) *models.AuditLog {
	model := opts.Model
	if model == "" {
		model = actx.Model
	}
	return &models.AuditLog{
		RequestID:       actx.RequestID,
		UserID:          actx.UserID,
		UserEmail:       actx.UserEmail,
		Role:            actx.Role,
		Timestamp:       time.Now(),
		Model:           model,
		InputTokens:     opts.InputTokens,
		OutputTokens:    opts.OutputTokens,
		CostEstimate:    budget.EstimateCost(model, opts.InputTokens, opts.OutputTokens),
		RequestCategory: actx.Category,
		Source:          actx.Source,
		PromptHash:      actx.PromptHash,
		PromptPreview:   actx.Preview,
		ResponsePreview: ExtractPreview(opts.ResponsePreview),
		LatencyMs:       time.Since(actx.StartTime).Milliseconds(),
		Status:          opts.Status,
	}
}

// Commit logs the entry and persists it. The client has already been served,
// so store failures are logged and swallowed.
func (s *Service) Commit(ctx context.Context, entry *models.AuditLog) {
	s.logger.Info("audit",
		zap.String("request_id", entry.RequestID),
		zap.String("user_id", entry.UserID),
		zap.String("model", entry.Model),
		zap.String("category", entry.RequestCategory),
		zap.String("source", entry.Source),
		zap.String("status", entry.Status),
		zap.Int64("input_tokens", entry.InputTokens),
		zap.Int64("output_tokens", entry.OutputTokens),
		zap.Float64("cost_estimate", entry.CostEstimate),
		zap.Int64("latency_ms", entry.LatencyMs))

	if s.db == nil {
		return
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.logger.Error("failed to persist audit entry",
			zap.String("request_id", entry.RequestID), zap.Error(err))
	}
}
