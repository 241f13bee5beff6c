package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dynamo-works/claude-engine/internal/catalog"
	"github.com/dynamo-works/claude-engine/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageRecord is one request's worth of consumption to persist.
type UsageRecord struct {
	UserID    string
	UserEmail string
	Model     string
	InputTok  int64
	OutputTok int64
	Category  string
}

// Service reads and writes the monthly counters. A nil db degrades every
// read to zero usage and every write to a no-op.
type Service struct {
	db     *gorm.DB
	cache  *Cache
	logger *zap.Logger
}

func NewService(db *gorm.DB, cache *Cache, logger *zap.Logger) *Service {
	return &Service{db: db, cache: cache, logger: logger}
}

// GetUserBudget builds the full status for a user. An absent counter row
// reads as zero usage.
func (s *Service) GetUserBudget(ctx context.Context, userID, role string) (*Status, error) {
	now := time.Now()
	limit := MonthlyBudget(role)

	var used int64
	if s.db != nil {
		var err error
		used, err = s.currentUsage(ctx, userID, now)
		if err != nil {
			return nil, err
		}
	}

	eval := Evaluate(used, limit)
	st := &Status{
		UserID:           userID,
		Role:             catalog.GetRole(role).Name,
		MonthlyLimit:     limit,
		CurrentUsage:     used,
		PercentUsed:      eval.PercentUsed,
		ResetDate:        NextResetDate(now).Format("2006-01-02"),
		Warning:          eval.Warning,
		WarningThreshold: WarningThreshold,
		Exceeded:         eval.Exceeded,
	}
	if limit != nil && *limit > 0 {
		rem := *limit - used
		if rem < 0 {
			rem = 0
		}
		st.Remaining = &rem
	}
	return st, nil
}

func (s *Service) currentUsage(ctx context.Context, userID string, now time.Time) (int64, error) {
	period := CurrentPeriodStart(now)

	if s.cache != nil {
		if used, ok := s.cache.Get(ctx, userID, period); ok {
			return used, nil
		}
	}

	var row models.UserBudget
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND period_start = ?", userID, period).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read budget counter: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, userID, period, row.CurrentUsage)
	}
	return row.CurrentUsage, nil
}

// RecordUsage appends a ledger row and bumps the monthly counter in one
// transaction. Called fire-and-forget after the response; failures are
// logged, never surfaced.
func (s *Service) RecordUsage(ctx context.Context, rec UsageRecord, role string) {
	if s.db == nil {
		return
	}

	now := time.Now()
	period := CurrentPeriodStart(now)
	total := rec.InputTok + rec.OutputTok

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		usage := &models.TokenUsage{
			UserID:          rec.UserID,
			UserEmail:       rec.UserEmail,
			Model:           rec.Model,
			InputTokens:     rec.InputTok,
			OutputTokens:    rec.OutputTok,
			CostEstimate:    EstimateCost(rec.Model, rec.InputTok, rec.OutputTok),
			RequestCategory: rec.Category,
		}
		if err := tx.Create(usage).Error; err != nil {
			return fmt.Errorf("failed to insert usage row: %w", err)
		}

		counter := &models.UserBudget{
			UserID:       rec.UserID,
			PeriodStart:  period,
			Role:         role,
			MonthlyLimit: MonthlyBudget(role),
			CurrentUsage: total,
			UpdatedAt:    now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "period_start"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"current_usage": gorm.Expr("user_budgets.current_usage + ?", total),
				"updated_at":    now,
			}),
		}).Create(counter).Error; err != nil {
			return fmt.Errorf("failed to upsert budget counter: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to record usage",
			zap.String("user_id", rec.UserID),
			zap.String("model", rec.Model),
			zap.Error(err))
		return
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, rec.UserID, period)
	}
}

// AdminSummaryRow is one user's aggregate for the admin view.
type AdminSummaryRow struct {
	UserID       string `json:"userId"`
	Role         string `json:"role"`
	CurrentUsage int64  `json:"currentUsage"`
	MonthlyLimit *int64 `json:"monthlyLimit"`
	PercentUsed  int    `json:"percentUsed"`
	Exceeded     bool   `json:"exceeded"`
}

// AdminSummary lists every counter for the current period, highest usage
// first.
func (s *Service) AdminSummary(ctx context.Context) ([]AdminSummaryRow, error) {
	if s.db == nil {
		return nil, nil
	}

	var rows []models.UserBudget
	if err := s.db.WithContext(ctx).
		Where("period_start = ?", CurrentPeriodStart(time.Now())).
		Order("current_usage DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read budget counters: %w", err)
	}

	out := make([]AdminSummaryRow, 0, len(rows))
	for _, r := range rows {
		eval := Evaluate(r.CurrentUsage, r.MonthlyLimit)
		out = append(out, AdminSummaryRow{
			UserID:       r.UserID,
			Role:         r.Role,
			CurrentUsage: r.CurrentUsage,
			MonthlyLimit: r.MonthlyLimit,
			PercentUsed:  eval.PercentUsed,
			Exceeded:     eval.Exceeded,
		})
	}
	return out, nil
}
