package models

import (
	"time"
)

// APIKey is one issued engine key. The raw key is never stored; only its
// SHA-256 hash and a 12-character display prefix survive creation.
type APIKey struct {
	BaseModel
	UserID     string     `gorm:"index;not null" json:"user_id"`
	UserEmail  string     `gorm:"index;not null" json:"user_email"`
	KeyHash    string     `gorm:"not null" json:"-"`
	KeyPrefix  string     `gorm:"not null" json:"key_prefix"`
	Role       string     `gorm:"not null" json:"role"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	IsActive   bool       `gorm:"default:true;index" json:"is_active"`
}

func (APIKey) TableName() string { return "api_keys" }

// Revoked reports whether the key has been marked inactive.
func (k *APIKey) Revoked() bool {
	return !k.IsActive || k.RevokedAt != nil
}
