// Package repo – persisted sliding-window rate-limit state.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seshhq/sesh-backend/internal/domain"
)

// GetRateLimitEvents returns the admitted-request timestamps (Unix
// milliseconds) persisted for key. A missing row or an undecodable event
// list yields an empty slice: stale or garbled state must never block the
// limiter, reads always re-filter by cutoff anyway.
func GetRateLimitEvents(ctx context.Context, db *gorm.DB, key string) ([]int64, error) {
	var state domain.RateLimitState
	err := db.WithContext(ctx).Where("key = ?", key).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var events []int64
	if err := json.Unmarshal(state.Events, &events); err != nil {
		return nil, nil
	}
	return events, nil
}

// PutRateLimitEvents upserts the event list for key.
func PutRateLimitEvents(ctx context.Context, db *gorm.DB, key string, events []int64, now time.Time) error {
	raw, err := json.Marshal(events)
	if err != nil {
		return err
	}
	state := domain.RateLimitState{
		Key:       key,
		Events:    raw,
		UpdatedAt: now.UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"events", "updated_at"}),
		}).
		Create(&state).Error
}
