package alert

import (
	"context"
	"encoding/json"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/dynamo-works/claude-engine/internal/services/scanner"
	"go.uber.org/zap"
)

// Alert is the security notification published when a scan finds something.
type Alert struct {
	Type      string            `json:"type"`
	Severity  string            `json:"severity"`
	Timestamp time.Time         `json:"timestamp"`
	Context   Ctx               `json:"context"`
	Findings  []scanner.Finding `json:"findings"`
}

// Ctx identifies the request that triggered the alert.
type Ctx struct {
	RequestID string `json:"requestId"`
	UserID    string `json:"userId,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
	Route     string `json:"route"`
}

// Publisher sends alerts to an SNS topic when one is configured, and falls
// back to a warning log otherwise. Failures never surface to the request.
type Publisher struct {
	client   *sns.Client
	topicARN string
	logger   *zap.Logger
}

func NewPublisher(ctx context.Context, topicARN string, logger *zap.Logger) *Publisher {
	p := &Publisher{topicARN: topicARN, logger: logger}
	if topicARN == "" {
		return p
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Warn("failed to load AWS config, alerts will log only", zap.Error(err))
		return p
	}
	p.client = sns.NewFromConfig(cfg)
	return p
}

// Build assembles an alert from scan findings. Severity is high when any
// finding is.
func Build(alertType string, actx Ctx, findings []scanner.Finding) Alert {
	severity := scanner.SeverityMedium
	for _, f := range findings {
		if f.Severity == scanner.SeverityHigh {
			severity = scanner.SeverityHigh
			break
		}
	}
	return Alert{
		Type:      alertType,
		Severity:  severity,
		Timestamp: time.Now(),
		Context:   actx,
		Findings:  findings,
	}
}

// Publish sends the alert fire-and-forget.
func (p *Publisher) Publish(a Alert) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("panic publishing alert", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		p.publish(ctx, a)
	}()
}

func (p *Publisher) publish(ctx context.Context, a Alert) {
	payload, err := json.Marshal(a)
	if err != nil {
		p.logger.Error("failed to marshal alert", zap.Error(err))
		return
	}
	msg := string(payload)

	if p.client == nil || p.topicARN == "" {
		p.logger.Warn("security alert",
			zap.String("type", a.Type),
			zap.String("severity", a.Severity),
			zap.String("request_id", a.Context.RequestID),
			zap.Int("findings", len(a.Findings)))
		return
	}

	subject := "Security alert: " + a.Type
	if _, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &p.topicARN,
		Subject:  &subject,
		Message:  &msg,
	}); err != nil {
		p.logger.Error("failed to publish alert",
			zap.String("type", a.Type),
			zap.String("request_id", a.Context.RequestID),
			zap.Error(err))
	}
}
