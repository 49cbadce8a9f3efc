// Package events consumes document-change notifications from the app's
// data store and maps them onto progress updates and notification fan-out.
// Delivery is at-least-once with no ordering guarantee across documents:
// every handler tolerates duplicates (the achievement grant guard absorbs
// replays) and treats malformed or missing fields as a no-op.
package events

import "encoding/json"

// Event types.
const (
	TypeCreated = "created"
	TypeUpdated = "updated"
)

// Source collections routed by the dispatcher.
const (
	ColPosts        = "posts"
	ColComments     = "comments"
	ColVault        = "vault"
	ColHelpfulUsers = "helpful_users"
	ColFriendReqs   = "friend_requests"
	ColChatMessages = "chat_messages"
	ColMarketItems  = "marketplace_items"
	ColMarketOrders = "marketplace_orders"
)

// Event is one document-change notification. Before/After carry the
// document body as loose JSON objects (absent for the side that does not
// apply); Params carries path parameters for subcollection documents
// (e.g. postId for a comment, chatId for a chat message).
type Event struct {
	Collection string            `json:"collection"`
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Params     map[string]string `json:"params,omitempty"`
	Before     Doc               `json:"before,omitempty"`
	After      Doc               `json:"after,omitempty"`
}

// Doc is a loosely typed document body.
type Doc map[string]any

// Str returns the string value of key, or "" when absent or not a string.
func (d Doc) Str(key string) string {
	if d == nil {
		return ""
	}
	s, _ := d[key].(string)
	return s
}

// Has reports whether key is present in the document.
func (d Doc) Has(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d[key]
	return ok
}

// Param returns the named path parameter, or "".
func (e Event) Param(key string) string {
	return e.Params[key]
}

// UnmarshalJSON keeps Doc decoding strict enough to reject non-objects
// while preserving loose field access.
func (d *Doc) UnmarshalJSON(raw []byte) error {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*d = m
	return nil
}
