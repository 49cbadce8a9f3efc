// Package domain defines the persistence models for the Sesh backend: user
// records with gamification counters, unlocked achievement tiers, social
// notifications, push tokens, and rate-limit state. These types are mapped
// with GORM and are shared across the repository and service layers.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Counter field names tracked by the achievement engine. They identify the
// numeric columns on User that are only ever incremented by the progress
// service.
const (
	FieldPostCount      = "postCount"
	FieldTotalReplies   = "totalReplies"
	FieldVaultUploads   = "vaultUploads"
	FieldSeshFocusHours = "seshFocusHours"
	FieldMarketListings = "marketListings"
	FieldMarketSales    = "marketSales"
)

// User is the per-user record holding XP, activity counters, and push
// preference. It is created externally by the signup flow; this subsystem
// only ever increments its counters and XP inside transactions.
//
// Fields:
//   - ID: stable user ID (matches the auth subject claim).
//   - XP: experience points; monotonically non-decreasing, credited only by
//     tier rewards and fixed per-event bonuses.
//   - PostCount/TotalReplies/VaultUploads/SeshFocusHours: achievement-tracked
//     counters. SeshFocusHours is fractional (sessions may be partial hours).
//   - MarketListings/MarketSales: marketplace counters (not achievement-tracked).
//   - PushEnabled: push delivery preference; defaults to enabled.
type User struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	DisplayName    string    `json:"display_name"    gorm:"type:varchar(128)"`
	XP             int64     `json:"xp"              gorm:"not null;default:0"`
	PostCount      int64     `json:"post_count"      gorm:"not null;default:0"`
	TotalReplies   int64     `json:"total_replies"   gorm:"not null;default:0"`
	VaultUploads   int64     `json:"vault_uploads"   gorm:"not null;default:0"`
	SeshFocusHours float64   `json:"sesh_focus_hours" gorm:"not null;default:0"`
	MarketListings int64     `json:"market_listings" gorm:"not null;default:0"`
	MarketSales    int64     `json:"market_sales"    gorm:"not null;default:0"`
	PushEnabled    bool      `json:"push_enabled"    gorm:"not null;default:true"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Counter returns the current value of the named counter field on u.
// The second return value is false for unknown field names.
func (u *User) Counter(field string) (float64, bool) {
	switch field {
	case FieldPostCount:
		return float64(u.PostCount), true
	case FieldTotalReplies:
		return float64(u.TotalReplies), true
	case FieldVaultUploads:
		return float64(u.VaultUploads), true
	case FieldSeshFocusHours:
		return u.SeshFocusHours, true
	case FieldMarketListings:
		return float64(u.MarketListings), true
	case FieldMarketSales:
		return float64(u.MarketSales), true
	default:
		return 0, false
	}
}

// CounterColumn maps a counter field name to its users-table column.
// The second return value is false for unknown field names.
func CounterColumn(field string) (string, bool) {
	switch field {
	case FieldPostCount:
		return "post_count", true
	case FieldTotalReplies:
		return "total_replies", true
	case FieldVaultUploads:
		return "vault_uploads", true
	case FieldSeshFocusHours:
		return "sesh_focus_hours", true
	case FieldMarketListings:
		return "market_listings", true
	case FieldMarketSales:
		return "market_sales", true
	default:
		return "", false
	}
}

// UserAchievement is one unlocked achievement tier for a user. The unique
// (user_id, tier_key) index is the grant-once guard: once a tier row exists
// it is never removed, and a replayed grant fails the unique constraint
// instead of awarding twice.
type UserAchievement struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"     gorm:"type:char(36);not null;index;uniqueIndex:ux_user_tier,priority:1"`
	TierKey    string    `json:"tier_key"    gorm:"type:varchar(64);not null;uniqueIndex:ux_user_tier,priority:2"`
	Name       string    `json:"name"        gorm:"type:varchar(128);not null"`
	Tier       int       `json:"tier"        gorm:"not null"`
	RewardXP   int64     `json:"reward_xp"   gorm:"not null"`
	UnlockedAt time.Time `json:"unlocked_at" gorm:"not null"`
}

// TableName returns the database table name for UserAchievement.
func (UserAchievement) TableName() string { return "user_achievements" }

// Notification types emitted by the fan-out service.
const (
	NotifyComment       = "comment"
	NotifyHelpful       = "helpful"
	NotifyFriendRequest = "friend_request"
	NotifyFriendAccept  = "friend_accept"
	NotifyMessage       = "message"
	NotifyMarketOrder   = "market_order"
)

// Notification is one delivered in-app notification. Correlation IDs are
// optional and present only when relevant to the type. Rows are written by
// the fan-out service and only mutated externally (the recipient marking
// them read).
type Notification struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_notifications,priority:1"`
	Type      string    `json:"type"       gorm:"type:varchar(32);not null"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null"`
	Body      string    `json:"body"       gorm:"type:text;not null"`
	IsRead    bool      `json:"is_read"    gorm:"not null;default:false"`
	ActorID   string    `json:"actor_id,omitempty"   gorm:"type:char(36)"`
	ActorName string    `json:"actor_name,omitempty" gorm:"type:varchar(128)"`
	PostID    string    `json:"post_id,omitempty"    gorm:"type:char(36)"`
	CommentID string    `json:"comment_id,omitempty" gorm:"type:char(36)"`
	RequestID string    `json:"request_id,omitempty" gorm:"type:char(36)"`
	ChatID    string    `json:"chat_id,omitempty"    gorm:"type:char(36)"`
	MessageID string    `json:"message_id,omitempty" gorm:"type:char(36)"`
	ItemID    string    `json:"item_id,omitempty"    gorm:"type:char(36)"`
	OrderID   string    `json:"order_id,omitempty"   gorm:"type:char(36)"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_user_notifications,priority:2"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// PushToken is one registered delivery token for a user. Tokens reported
// invalid by the push transport are pruned by the fan-out service.
type PushToken struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index;uniqueIndex:ux_user_token,priority:1"`
	Token     string    `json:"token"      gorm:"type:varchar(512);not null;uniqueIndex:ux_user_token,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for PushToken.
func (PushToken) TableName() string { return "push_tokens" }

// RateLimitState is the persisted sliding-window state for one rate-limited
// key: an ordered list of admitted-request timestamps (Unix milliseconds),
// JSON-encoded. Rows are created lazily and never deleted; reads always
// re-filter by the window cutoff, so stale rows are harmless.
type RateLimitState struct {
	Key       string         `json:"key"        gorm:"type:varchar(128);primaryKey"`
	Events    datatypes.JSON `json:"events"     gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName returns the database table name for RateLimitState.
func (RateLimitState) TableName() string { return "rate_limit_states" }

// Post is a question posted to the community feed. Only the fields needed
// for notification composition are modelled here; the app owns the rest.
type Post struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	AuthorID  string    `json:"author_id" gorm:"type:char(36);not null;index"`
	Question  string    `json:"question"  gorm:"type:text"`
	Subject   string    `json:"subject"   gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// ChatThread is a direct or group chat. Participants is a JSON-encoded list
// of user IDs used to fan out message notifications.
type ChatThread struct {
	ID           string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Participants datatypes.JSON `json:"participants" gorm:"not null"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName returns the database table name for ChatThread.
func (ChatThread) TableName() string { return "chat_threads" }

// Marketplace item/order statuses stamped by the event handlers.
const (
	ItemStatusActive = "active"
	ItemStatusSold   = "sold"

	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"

	DefaultCurrency = "ZAR"
)

// MarketItem is a marketplace listing. Creation stamps defaults (status,
// currency, search tokens) when the client omitted them.
type MarketItem struct {
	ID           string         `json:"id"          gorm:"type:char(36);primaryKey"`
	SellerID     string         `json:"seller_id"   gorm:"type:char(36);not null;index"`
	SellerName   string         `json:"seller_name" gorm:"type:varchar(128)"`
	Title        string         `json:"title"       gorm:"type:varchar(255)"`
	Description  string         `json:"description" gorm:"type:text"`
	Category     string         `json:"category"    gorm:"type:varchar(64)"`
	Status       string         `json:"status"      gorm:"type:varchar(32)"`
	Currency     string         `json:"currency"    gorm:"type:varchar(8)"`
	SearchTokens datatypes.JSON `json:"search_tokens,omitempty"`
	SoldTo       string         `json:"sold_to,omitempty" gorm:"type:char(36)"`
	SoldAt       *time.Time     `json:"sold_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName returns the database table name for MarketItem.
func (MarketItem) TableName() string { return "marketplace_items" }

// MarketOrder is a buy request against a MarketItem.
type MarketOrder struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	SellerID  string    `json:"seller_id" gorm:"type:char(36);not null;index"`
	BuyerID   string    `json:"buyer_id"  gorm:"type:char(36);not null"`
	ItemID    string    `json:"item_id"   gorm:"type:char(36);not null"`
	Status    string    `json:"status"    gorm:"type:varchar(32)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for MarketOrder.
func (MarketOrder) TableName() string { return "marketplace_orders" }

// AuditLog is one best-effort request audit record written by the gateway.
// Writes are fire-and-forget; a failed write never affects the response.
type AuditLog struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	RequestID  string    `json:"request_id"  gorm:"type:char(36);index"`
	Method     string    `json:"method"      gorm:"type:varchar(8)"`
	Path       string    `json:"path"        gorm:"type:varchar(255)"`
	Status     int       `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	UserID     string    `json:"user_id"     gorm:"type:char(36);index"`
	IP         string    `json:"ip"          gorm:"type:varchar(64)"`
	UserAgent  string    `json:"user_agent"  gorm:"type:varchar(255)"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for AuditLog.
func (AuditLog) TableName() string { return "audit_logs" }
