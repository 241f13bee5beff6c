package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit statuses.
const (
	AuditStatusSuccess = "success"
	AuditStatusError   = "error"
	AuditStatusBlocked = "blocked"
)

// Request sources.
const (
	SourceWeb = "web"
	SourceCLI = "cli"
)

// AuditLog is one row of the request audit trail. Prompt content is stored
// hashed, with a short redacted preview for operator triage.
type AuditLog struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	RequestID       string    `gorm:"index;not null" json:"request_id"`
	UserID          string    `gorm:"index" json:"user_id,omitempty"`
	UserEmail       string    `json:"user_email,omitempty"`
	Role            string    `json:"role,omitempty"`
	Timestamp       time.Time `gorm:"index;not null" json:"timestamp"`
	Model           string    `json:"model"`
	InputTokens     int64     `json:"input_tokens"`
	OutputTokens    int64     `json:"output_tokens"`
	CostEstimate    float64   `json:"cost_estimate"`
	RequestCategory string    `json:"request_category"`
	Source          string    `json:"source"`
	PromptHash      string    `json:"prompt_hash"`
	PromptPreview   string    `json:"prompt_preview"`
	ResponsePreview string    `json:"response_preview"`
	LatencyMs       int64     `json:"latency_ms"`
	Status          string    `gorm:"not null" json:"status"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
