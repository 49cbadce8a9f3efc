// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User
// record and its unlocked achievement tiers.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return ErrNotFound
//     (an alias for gorm.ErrRecordNotFound).
//   - Replayed achievement grants surface as ErrDuplicate via the unique
//     (user_id, tier_key) index.
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seshhq/sesh-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a unique-constraint violation, e.g. a replayed
// achievement grant or push-token registration.
var ErrDuplicate = errors.New("duplicate")

// GetUser fetches a user record by ID, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserName resolves a user's display name for notification bodies.
// Missing users and empty names resolve to "Someone", matching the app's
// anonymous fallback; lookups never fail the caller on a missing row.
func GetUserName(ctx context.Context, db *gorm.DB, id string) (string, error) {
	if id == "" {
		return "Someone", nil
	}
	u, err := GetUser(ctx, db, id)
	if errors.Is(err, ErrNotFound) {
		return "Someone", nil
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(u.DisplayName) == "" {
		return "Someone", nil
	}
	return u.DisplayName, nil
}

// ListUnlockedTierKeys returns the set of achievement tier keys already
// granted to userID.
func ListUnlockedTierKeys(ctx context.Context, db *gorm.DB, userID string) (map[string]bool, error) {
	var keys []string
	err := db.WithContext(ctx).
		Model(&domain.UserAchievement{}).
		Where("user_id = ?", userID).
		Pluck("tier_key", &keys).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out, nil
}

// CreateUserAchievement inserts one unlocked tier row. A replayed grant for
// the same (user, tier key) trips the unique index and is reported as
// ErrDuplicate so callers can treat it as already-granted.
func CreateUserAchievement(ctx context.Context, db *gorm.DB, rec *domain.UserAchievement) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UnlockedAt.IsZero() {
		rec.UnlockedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListUserAchievements returns the unlocked tiers for userID, most recent
// first.
func ListUserAchievements(ctx context.Context, db *gorm.DB, userID string) ([]domain.UserAchievement, error) {
	var out []domain.UserAchievement
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unlocked_at desc").
		Find(&out).Error
	return out, err
}

// ApplyProgress writes the updated counter value and atomically credits XP
// in a single UPDATE. The XP delta is applied as a SQL increment, not a
// read-modify-write of a stale local value, so rewards from multiple tiers
// unlocked in the same transaction all accumulate.
func ApplyProgress(ctx context.Context, db *gorm.DB, userID, counterColumn string, newValue float64, xpDelta int64) error {
	updates := map[string]any{
		"xp": gorm.Expr("xp + ?", xpDelta),
	}
	if counterColumn != "" {
		updates[counterColumn] = newValue
	}
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation detects unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey. glebarez/sqlite often returns
// plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint failed: unique") ||
		strings.Contains(msg, "duplicate key")
}
