package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenUsage is one row of the append-only usage ledger. Rows are never
// updated after insert.
type TokenUsage struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID          string    `gorm:"index:idx_token_usage_user_created;not null" json:"user_id"`
	UserEmail       string    `gorm:"not null" json:"user_email"`
	Model           string    `gorm:"not null" json:"model"`
	InputTokens     int64     `json:"input_tokens"`
	OutputTokens    int64     `json:"output_tokens"`
	CostEstimate    float64   `json:"cost_estimate"`
	RequestCategory string    `json:"request_category"`
	CreatedAt       time.Time `gorm:"index:idx_token_usage_user_created" json:"created_at"`
}

func (TokenUsage) TableName() string { return "token_usage" }

func (u *TokenUsage) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
