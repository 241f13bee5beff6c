package models

import "time"

// UserBudget is the materialized monthly counter, keyed on
// (user_id, period_start). It is incremented in the same transaction as the
// matching token_usage insert.
type UserBudget struct {
	UserID       string    `gorm:"primaryKey" json:"user_id"`
	PeriodStart  time.Time `gorm:"primaryKey" json:"period_start"`
	Role         string    `gorm:"not null" json:"role"`
	MonthlyLimit *int64    `json:"monthly_limit,omitempty"`
	CurrentUsage int64     `gorm:"default:0" json:"current_usage"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (UserBudget) TableName() string { return "user_budgets" }
