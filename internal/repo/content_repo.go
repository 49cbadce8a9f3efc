// Package repo – read/stamp access to app-owned content records (posts,
// chat threads, marketplace items and orders). These rows are created by
// the client app; the backend reads them to compose notifications and
// stamps server-side defaults on creation events.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/seshhq/sesh-backend/internal/domain"
)

// GetPost fetches a post by ID, or ErrNotFound.
func GetPost(ctx context.Context, db *gorm.DB, id string) (*domain.Post, error) {
	var p domain.Post
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetChatParticipants returns the participant user IDs of a chat thread.
// A missing thread or undecodable participant list yields nil.
func GetChatParticipants(ctx context.Context, db *gorm.DB, chatID string) ([]string, error) {
	var t domain.ChatThread
	err := db.WithContext(ctx).Where("id = ?", chatID).First(&t).Error
	if err != nil {
		return nil, err
	}
	var participants []string
	if err := json.Unmarshal(t.Participants, &participants); err != nil {
		return nil, nil
	}
	return participants, nil
}

// GetMarketItem fetches a marketplace item by ID, or ErrNotFound.
func GetMarketItem(ctx context.Context, db *gorm.DB, id string) (*domain.MarketItem, error) {
	var item domain.MarketItem
	if err := db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateMarketItem applies a partial update to a marketplace item.
// Used by creation events to stamp defaults the client omitted.
func UpdateMarketItem(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.MarketItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkItemSold marks an item sold to buyerID at the given time.
func MarkItemSold(ctx context.Context, db *gorm.DB, itemID, buyerID string, at time.Time) error {
	return UpdateMarketItem(ctx, db, itemID, map[string]any{
		"status":  domain.ItemStatusSold,
		"sold_at": at.UTC(),
		"sold_to": buyerID,
	})
}

// UpdateMarketOrder applies a partial update to a marketplace order.
func UpdateMarketOrder(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.MarketOrder{}).
		Where("id = ?", id).
		Updates(updates).Error
}
