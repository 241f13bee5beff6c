package profile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dynamo-works/claude-engine/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service upserts identity attributes observed during token auth. Writes
// are fire-and-forget; a nil db disables them.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Upsert records a login. First login is preserved; role, groups and
// display name refresh on every sighting.
func (s *Service) Upsert(userID, email, displayName, role string, groups []string) {
	if s.db == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic upserting user profile", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		now := time.Now()
		p := &models.UserProfile{
			UserID:     userID,
			Email:      email,
			Role:       role,
			FirstLogin: now,
			LastLogin:  now,
		}
		if displayName != "" {
			p.DisplayName = &displayName
		}
		if len(groups) > 0 {
			if raw, err := json.Marshal(groups); err == nil {
				p.IdentityGroups = datatypes.JSON(raw)
			}
		}

		assignments := map[string]interface{}{
			"email":      email,
			"role":       role,
			"last_login": now,
		}
		if p.DisplayName != nil {
			assignments["display_name"] = *p.DisplayName
		}
		if len(p.IdentityGroups) > 0 {
			assignments["identity_groups"] = p.IdentityGroups
		}

		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).Create(p).Error; err != nil {
			s.logger.Warn("failed to upsert user profile",
				zap.String("user_id", userID), zap.Error(err))
		}
	}()
}
