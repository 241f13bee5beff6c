package key

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dynamo-works/claude-engine/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrKeyNotFound = errors.New("api key not found")
	ErrNoStore     = errors.New("persistence not configured")
)

// Service manages issued API keys. A nil db disables every operation; the
// proxy keeps working without key auth.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// CreateResult carries the one-time raw key alongside the stored row.
type CreateResult struct {
	Key    *models.APIKey
	RawKey string
}

// Create issues a new key for an email. The raw key is returned exactly once
// and never stored.
func (s *Service) Create(ctx context.Context, email, role string) (*CreateResult, error) {
	if s.db == nil {
		return nil, ErrNoStore
	}

	raw, err := GenerateRawKey()
	if err != nil {
		return nil, err
	}

	k := &models.APIKey{
		UserID:    localPart(email),
		UserEmail: email,
		KeyHash:   HashKey(raw),
		KeyPrefix: DisplayPrefix(raw),
		Role:      role,
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(k).Error; err != nil {
		return nil, fmt.Errorf("failed to create key: %w", err)
	}

	s.logger.Info("API key created",
		zap.String("key_id", k.ID.String()),
		zap.String("user_email", k.UserEmail),
		zap.String("role", k.Role))

	return &CreateResult{Key: k, RawKey: raw}, nil
}

// List returns all keys, newest first. Raw keys are gone; only the display
// prefix remains.
func (s *Service) List(ctx context.Context) ([]*models.APIKey, error) {
	if s.db == nil {
		return nil, nil
	}

	var keys []*models.APIKey
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// Revoke marks a key inactive. It reports false when the key was already
// revoked, so a second call is a safe no-op.
func (s *Service) Revoke(ctx context.Context, keyID string) (bool, error) {
	if s.db == nil {
		return false, ErrNoStore
	}

	id, err := uuid.Parse(keyID)
	if err != nil {
		return false, ErrKeyNotFound
	}

	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"revoked_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to revoke key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		s.db.WithContext(ctx).Model(&models.APIKey{}).Where("id = ?", id).Count(&count)
		if count == 0 {
			return false, ErrKeyNotFound
		}
		return false, nil
	}

	s.logger.Info("API key revoked", zap.String("key_id", keyID))
	return true, nil
}

// Rotate revokes the existing key and issues a replacement for the same
// identity in one transaction. The old row is locked so concurrent rotations
// of the same key serialize.
func (s *Service) Rotate(ctx context.Context, keyID string) (*CreateResult, error) {
	if s.db == nil {
		return nil, ErrNoStore
	}

	id, err := uuid.Parse(keyID)
	if err != nil {
		return nil, ErrKeyNotFound
	}

	raw, err := GenerateRawKey()
	if err != nil {
		return nil, err
	}

	var replacement *models.APIKey
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.APIKey
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND is_active = ?", id, true).
			First(&old).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrKeyNotFound
			}
			return fmt.Errorf("failed to lock key: %w", err)
		}

		now := time.Now()
		if err := tx.Model(&old).Updates(map[string]interface{}{
			"is_active":  false,
			"revoked_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to revoke old key: %w", err)
		}

		replacement = &models.APIKey{
			UserID:    old.UserID,
			UserEmail: old.UserEmail,
			KeyHash:   HashKey(raw),
			KeyPrefix: DisplayPrefix(raw),
			Role:      old.Role,
			IsActive:  true,
		}
		if err := tx.Create(replacement).Error; err != nil {
			return fmt.Errorf("failed to create replacement key: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("API key rotated",
		zap.String("old_key_id", keyID),
		zap.String("new_key_id", replacement.ID.String()))

	return &CreateResult{Key: replacement, RawKey: raw}, nil
}

// LookupByHash resolves a key hash to its active row. A hit schedules a
// fire-and-forget last-used update.
func (s *Service) LookupByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	if s.db == nil {
		return nil, ErrNoStore
	}

	var k models.APIKey
	if err := s.db.WithContext(ctx).
		Where("key_hash = ? AND is_active = ?", hash, true).
		First(&k).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to look up key: %w", err)
	}

	s.touchLastUsed(k.ID)
	return &k, nil
}

func (s *Service) touchLastUsed(id uuid.UUID) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic updating key last_used_at", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.db.WithContext(ctx).
			Model(&models.APIKey{}).
			Where("id = ?", id).
			Update("last_used_at", time.Now()).Error; err != nil {
			s.logger.Warn("failed to update key last_used_at",
				zap.String("key_id", id.String()), zap.Error(err))
		}
	}()
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
