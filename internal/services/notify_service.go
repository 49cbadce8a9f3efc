// Package services – NotifyService
//
// This file implements notification fan-out: persist an in-app notification
// record for the recipient, then attempt push delivery as a detached side
// effect. The record write is the authoritative state transition; push
// delivery is fire-and-forget and its failure is logged and swallowed, so
// it can never roll back or appear to fail the notification itself.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/seshhq/sesh-backend/internal/domain"
	"github.com/seshhq/sesh-backend/internal/observability"
	"github.com/seshhq/sesh-backend/internal/push"
	"github.com/seshhq/sesh-backend/internal/repo"
)

// PreviewLimit caps embedded text previews (comment bodies, message text,
// item titles) in notification bodies, in runes.
const PreviewLimit = 80

// pushTimeout bounds the detached delivery attempt after the record write.
const pushTimeout = 30 * time.Second

// Payload is one typed notification. Use the New*Payload constructors:
// each notification type carries only the correlation IDs relevant to it.
type Payload struct {
	Type      string
	Title     string
	Body      string
	ActorID   string
	ActorName string
	PostID    string
	CommentID string
	RequestID string
	ChatID    string
	MessageID string
	ItemID    string
	OrderID   string
}

// NewCommentPayload notifies a post author about a new answer.
func NewCommentPayload(actorID, actorName, postID, commentID, preview string) Payload {
	body := actorName + " answered your question."
	if preview != "" {
		body = actorName + ` answered: "` + preview + `"`
	}
	return Payload{
		Type:      domain.NotifyComment,
		Title:     "New answer on your question",
		Body:      body,
		ActorID:   actorID,
		ActorName: actorName,
		PostID:    postID,
		CommentID: commentID,
	}
}

// NewHelpfulPayload notifies a post author that someone marked their
// question helpful.
func NewHelpfulPayload(actorID, actorName, postID, preview string) Payload {
	body := actorName + " found your question helpful."
	if preview != "" {
		body = actorName + ` found your question helpful: "` + preview + `"`
	}
	return Payload{
		Type:      domain.NotifyHelpful,
		Title:     "Someone liked your question",
		Body:      body,
		ActorID:   actorID,
		ActorName: actorName,
		PostID:    postID,
	}
}

// NewFriendRequestPayload notifies the recipient of a new friend request.
func NewFriendRequestPayload(actorID, actorName, requestID string) Payload {
	return Payload{
		Type:      domain.NotifyFriendRequest,
		Title:     "New friend request",
		Body:      actorName + " sent you a friend request.",
		ActorID:   actorID,
		ActorName: actorName,
		RequestID: requestID,
	}
}

// NewFriendAcceptPayload notifies the original requester of an acceptance.
func NewFriendAcceptPayload(actorID, actorName, requestID string) Payload {
	return Payload{
		Type:      domain.NotifyFriendAccept,
		Title:     "Friend request accepted",
		Body:      actorName + " accepted your friend request.",
		ActorID:   actorID,
		ActorName: actorName,
		RequestID: requestID,
	}
}

// NewMessagePayload notifies a chat participant about a new message.
func NewMessagePayload(actorID, actorName, chatID, messageID, preview string) Payload {
	body := actorName + " sent a message."
	if preview != "" {
		body = actorName + ": " + preview
	}
	return Payload{
		Type:      domain.NotifyMessage,
		Title:     "New message",
		Body:      body,
		ActorID:   actorID,
		ActorName: actorName,
		ChatID:    chatID,
		MessageID: messageID,
	}
}

// NewMarketOrderPayload notifies a seller about a new order.
func NewMarketOrderPayload(actorID, actorName, itemID, orderID, itemTitle string) Payload {
	body := actorName + " wants to buy your item."
	if itemTitle != "" {
		body = actorName + ` wants to buy "` + itemTitle + `".`
	}
	return Payload{
		Type:      domain.NotifyMarketOrder,
		Title:     "New marketplace order",
		Body:      body,
		ActorID:   actorID,
		ActorName: actorName,
		ItemID:    itemID,
		OrderID:   orderID,
	}
}

// NotifyService persists notification records and fans out push delivery.
type NotifyService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Sender is the push transport; nil disables push entirely.
	Sender push.Sender
}

// Notify persists a notification for userID and dispatches push delivery in
// the background. An empty userID is a no-op (the triggering document was
// missing a recipient, which is not an error). The returned error covers
// only the record write; push runs detached with its own timeout.
func (s *NotifyService) Notify(ctx context.Context, userID string, p Payload) error {
	if userID == "" {
		return nil
	}

	rec := &domain.Notification{
		UserID:    userID,
		Type:      p.Type,
		Title:     p.Title,
		Body:      p.Body,
		ActorID:   p.ActorID,
		ActorName: p.ActorName,
		PostID:    p.PostID,
		CommentID: p.CommentID,
		RequestID: p.RequestID,
		ChatID:    p.ChatID,
		MessageID: p.MessageID,
		ItemID:    p.ItemID,
		OrderID:   p.OrderID,
	}
	if err := repo.CreateNotification(ctx, s.DB, rec); err != nil {
		return err
	}
	observability.NotificationsCreated.WithLabelValues(p.Type).Inc()

	if s.Sender == nil {
		return nil
	}
	go func() {
		// Detached from the request context: the authoritative write has
		// already committed and must not be affected by delivery fate.
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := s.deliverPush(ctx, userID, p); err != nil {
			log.Warn().Err(err).
				Str("user_id", userID).
				Str("type", p.Type).
				Msg("push delivery failed")
		}
	}()
	return nil
}

// deliverPush looks up the recipient's push preference and tokens, sends in
// batches of at most push.MaxBatchTokens, and prunes tokens the transport
// reported invalid. Transient per-token failures are not retried.
func (s *NotifyService) deliverPush(ctx context.Context, userID string, p Payload) error {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !u.PushEnabled {
		return nil
	}

	tokens, err := repo.ListPushTokens(ctx, s.DB, userID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	msg := push.Message{
		Title: p.Title,
		Body:  p.Body,
		Data:  p.dataPayload(),
	}

	for start := 0; start < len(tokens); start += push.MaxBatchTokens {
		end := start + push.MaxBatchTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]

		results, err := s.Sender.Send(ctx, batch, msg)
		if err != nil {
			// Whole-batch failure: log and move on, never retried.
			log.Warn().Err(err).Str("user_id", userID).Int("tokens", len(batch)).Msg("push batch failed")
			continue
		}

		var invalid []string
		for i, r := range results {
			if r.Invalid {
				invalid = append(invalid, batch[i])
			}
		}
		if len(invalid) > 0 {
			if err := repo.DeletePushTokens(ctx, s.DB, userID, invalid); err != nil {
				log.Warn().Err(err).Str("user_id", userID).Msg("pruning invalid push tokens failed")
			} else {
				observability.PushTokensPruned.Add(float64(len(invalid)))
			}
		}
	}
	return nil
}

// dataPayload builds the key/value data delivered alongside the push
// notification, containing the type and only the correlation IDs set.
func (p Payload) dataPayload() map[string]string {
	data := map[string]string{"type": p.Type}
	put := func(k, v string) {
		if v != "" {
			data[k] = v
		}
	}
	put("actorId", p.ActorID)
	put("actorName", p.ActorName)
	put("postId", p.PostID)
	put("commentId", p.CommentID)
	put("requestId", p.RequestID)
	put("chatId", p.ChatID)
	put("messageId", p.MessageID)
	put("itemId", p.ItemID)
	put("orderId", p.OrderID)
	return data
}

// TrimPreview shortens embedded preview text to PreviewLimit runes,
// appending "..." when truncated. Whitespace is trimmed first.
func TrimPreview(text string) string {
	trimmed := []rune(strings.TrimSpace(text))
	if len(trimmed) <= PreviewLimit {
		return string(trimmed)
	}
	return string(trimmed[:PreviewLimit-3]) + "..."
}
