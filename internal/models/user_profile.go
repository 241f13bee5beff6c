package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserProfile caches identity attributes seen during token auth. It is
// upserted on login and never consulted on the hot path.
type UserProfile struct {
	UserID         string         `gorm:"primaryKey" json:"user_id"`
	Email          string         `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName    *string        `json:"display_name,omitempty"`
	Department     *string        `json:"department,omitempty"`
	Role           string         `gorm:"not null" json:"role"`
	IdentityGroups datatypes.JSON `json:"identity_groups,omitempty"`
	FirstLogin     time.Time      `json:"first_login"`
	LastLogin      time.Time      `json:"last_login"`
}

func (UserProfile) TableName() string { return "user_profiles" }
