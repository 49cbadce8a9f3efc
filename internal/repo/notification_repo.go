// Package repo – notification, push-token, and audit-log persistence.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seshhq/sesh-backend/internal/domain"
)

// CreateNotification inserts a notification record for its user.
func CreateNotification(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(n).Error
}

// ListPushTokens returns the registered delivery tokens for userID.
func ListPushTokens(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var tokens []string
	err := db.WithContext(ctx).
		Model(&domain.PushToken{}).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Pluck("token", &tokens).Error
	return tokens, err
}

// RegisterPushToken stores a delivery token for userID. Re-registering the
// same token is a no-op (ErrDuplicate is swallowed).
func RegisterPushToken(ctx context.Context, db *gorm.DB, userID, token string) error {
	rec := &domain.PushToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

// DeletePushTokens removes the given tokens from userID's registered set.
// Used to prune tokens the push transport reported as no longer valid.
func DeletePushTokens(ctx context.Context, db *gorm.DB, userID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Where("user_id = ? AND token IN ?", userID, tokens).
		Delete(&domain.PushToken{}).Error
}

// CreateAuditLog inserts one request audit record. The write is best-effort
// from the caller's perspective; this function itself just persists.
func CreateAuditLog(ctx context.Context, db *gorm.DB, rec *domain.AuditLog) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(rec).Error
}
