// Package service contains the business logic of the moderation console.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tribunal/internal/cache"
	"tribunal/internal/middleware"
	"tribunal/internal/models"
	"tribunal/internal/observability"
	"tribunal/internal/staging"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// ModerationStats aggregates platform counts for the admin dashboard.
type ModerationStats struct {
	TotalUsers      int64 `json:"total_users"`
	RestrictedUsers int64 `json:"restricted_users"`
	Moderators      int64 `json:"moderators"`
	Admins          int64 `json:"admins"`
	ActionsToday    int64 `json:"actions_today"`
}

// AdminUserDetail aggregates user and moderation history for admin views.
type AdminUserDetail struct {
	User       models.User            `json:"user"`
	RecentLogs []models.ModerationLog `json:"recent_logs"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// ModerationService applies committed moderation batches and serves admin
// aggregates. It is the dispatcher behind the staging committer.
type ModerationService struct {
	db *gorm.DB
}

// NewModerationService returns a new ModerationService.
func NewModerationService(db *gorm.DB) *ModerationService {
	return &ModerationService{db: db}
}

// ExecuteBulk applies a committed batch inside a single transaction. Either
// every action lands together with its audit rows or none do. The acting
// admin is read from the request context. Returns the batch ID shared by
// the audit rows.
func (s *ModerationService) ExecuteBulk(ctx context.Context, reqs []models.ActionRequest) (string, error) {
	if len(reqs) == 0 {
		return "", models.NewValidationError("empty action batch")
	}

	batchID := uuid.NewString()
	actorID, _ := ctx.Value(middleware.UserIDKey).(uint)

	observability.AddTraceAttributesToContext(ctx,
		attribute.String("moderation.batch_id", batchID),
		attribute.Int("moderation.actions", len(reqs)))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, req := range reqs {
			if err := applyAction(tx, req); err != nil {
				return err
			}
			entry := models.ModerationLog{
				BatchID:  batchID,
				ActorID:  actorID,
				UserID:   req.UserID,
				Action:   req.Action,
				Role:     req.Role,
				Duration: req.Duration,
				Reasons:  strings.Join(req.Reasons, "; "),
				Outcome:  staging.MostSevereResult(req.Action, req.Reasons),
			}
			if err := tx.Create(&entry).Error; err != nil {
				return models.NewInternalError(err)
			}
		}
		return nil
	})
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		slog.WarnContext(ctx, "bulk moderation batch rolled back",
			"batch_id", batchID, "actions", len(reqs), "err", err)
		return "", err
	}

	for _, req := range reqs {
		cache.InvalidateUser(ctx, req.UserID)
	}
	cache.InvalidateStats(ctx)

	slog.InfoContext(ctx, "bulk moderation batch applied",
		"batch_id", batchID, "actor_id", actorID, "actions", len(reqs))
	return batchID, nil
}

func applyAction(tx *gorm.DB, req models.ActionRequest) error {
	var user models.User
	if err := tx.First(&user, req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("User", req.UserID)
		}
		return models.NewInternalError(err)
	}

	switch req.Action {
	case models.ActionResetAvatar:
		user.Avatar = ""
	case models.ActionResetUsername:
		user.Username = fmt.Sprintf("user_%d", user.ID)
	case models.ActionResetBio:
		user.Bio = ""
	case models.ActionChangeRole:
		if !models.ValidRole(req.Role) {
			return models.NewValidationError(fmt.Sprintf("unknown role %q", req.Role))
		}
		user.Role = req.Role
	case models.ActionRestrict:
		days, err := strconv.Atoi(req.Duration)
		if err != nil || days <= 0 {
			return models.NewValidationError(fmt.Sprintf("invalid restriction duration %q", req.Duration))
		}
		until := time.Now().AddDate(0, 0, days)
		user.IsRestricted = true
		user.RestrictedUntil = &until
	case models.ActionDelete:
		if err := tx.Delete(&user).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	default:
		return models.NewValidationError(fmt.Sprintf("unknown moderation action %q", req.Action))
	}

	if err := tx.Save(&user).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Stats returns dashboard counts, served from cache when fresh.
func (s *ModerationService) Stats(ctx context.Context) (*ModerationStats, error) {
	var stats ModerationStats
	err := cache.Aside(ctx, cache.StatsKey, &stats, cache.StatsTTL, func() error {
		db := s.db.WithContext(ctx)
		if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := db.Model(&models.User{}).Where("is_restricted = ?", true).Count(&stats.RestrictedUsers).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := db.Model(&models.User{}).Where("role = ?", models.RoleModerator).Count(&stats.Moderators).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&stats.Admins).Error; err != nil {
			return models.NewInternalError(err)
		}
		midnight := time.Now().Truncate(24 * time.Hour)
		if err := db.Model(&models.ModerationLog{}).Where("created_at >= ?", midnight).Count(&stats.ActionsToday).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetAdminUserDetail returns the user plus their recent moderation history.
func (s *ModerationService) GetAdminUserDetail(ctx context.Context, userID uint) (*AdminUserDetail, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", userID)
		}
		return nil, models.NewInternalError(err)
	}

	detail := &AdminUserDetail{User: user}

	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(50).
		Find(&detail.RecentLogs).Error; err != nil {
		slog.WarnContext(ctx, "failed to load moderation history for user", "user_id", userID, "err", err)
		detail.Warnings = append(detail.Warnings, "Partial data: Moderation history could not be loaded.")
	}

	return detail, nil
}

// LogsForBatch returns every audit row written by one commit.
func (s *ModerationService) LogsForBatch(ctx context.Context, batchID string) ([]models.ModerationLog, error) {
	var logs []models.ModerationLog
	if err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("id ASC").
		Find(&logs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return logs, nil
}
