// Event dispatcher: routes document-change events to their handlers.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/seshhq/sesh-backend/internal/domain"
	"github.com/seshhq/sesh-backend/internal/repo"
	"github.com/seshhq/sesh-backend/internal/services"
)

// Dispatcher wires document-change events to the progress engine and
// notification fan-out. Progress failures propagate to the caller (so the
// event source can redeliver); notification-record failures propagate for
// the same reason, while push delivery inside NotifyService is already
// detached and can never fail a dispatch.
type Dispatcher struct {
	DB       *gorm.DB
	Progress *services.ProgressService
	Notify   *services.NotifyService
}

// Dispatch routes one event. Events for unknown collections or types are
// ignored: the delivery contract is at-least-once over a superset of
// collections, and silence is cheaper than coupling the source to this
// subsystem's routing table.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	switch {
	case ev.Collection == ColPosts && ev.Type == TypeCreated:
		return d.onPostCreated(ctx, ev)
	case ev.Collection == ColComments && ev.Type == TypeCreated:
		return d.onCommentCreated(ctx, ev)
	case ev.Collection == ColVault && ev.Type == TypeCreated:
		return d.onVaultUploadCreated(ctx, ev)
	case ev.Collection == ColHelpfulUsers && ev.Type == TypeCreated:
		return d.onHelpfulCreated(ctx, ev)
	case ev.Collection == ColFriendReqs && ev.Type == TypeCreated:
		return d.onFriendRequestCreated(ctx, ev)
	case ev.Collection == ColFriendReqs && ev.Type == TypeUpdated:
		return d.onFriendRequestUpdated(ctx, ev)
	case ev.Collection == ColChatMessages && ev.Type == TypeCreated:
		return d.onChatMessageCreated(ctx, ev)
	case ev.Collection == ColMarketItems && ev.Type == TypeCreated:
		return d.onMarketItemCreated(ctx, ev)
	case ev.Collection == ColMarketOrders && ev.Type == TypeCreated:
		return d.onMarketOrderCreated(ctx, ev)
	case ev.Collection == ColMarketOrders && ev.Type == TypeUpdated:
		return d.onMarketOrderUpdated(ctx, ev)
	default:
		log.Debug().Str("collection", ev.Collection).Str("type", ev.Type).Msg("event ignored")
		return nil
	}
}

// onPostCreated credits the author with a post.
func (d *Dispatcher) onPostCreated(ctx context.Context, ev Event) error {
	authorID := ev.After.Str("authorId")
	if authorID == "" {
		return nil
	}
	return d.Progress.AddPost(ctx, authorID)
}

// onVaultUploadCreated credits the uploader with a vault contribution.
func (d *Dispatcher) onVaultUploadCreated(ctx context.Context, ev Event) error {
	userID := ev.After.Str("userId")
	if userID == "" {
		return nil
	}
	return d.Progress.AddVaultUpload(ctx, userID)
}

// onCommentCreated credits the commenter with a reply, then notifies the
// post author unless they answered their own question.
func (d *Dispatcher) onCommentCreated(ctx context.Context, ev Event) error {
	commenterID := ev.After.Str("userId")
	if commenterID == "" {
		return nil
	}
	if err := d.Progress.AddReply(ctx, commenterID); err != nil {
		return err
	}

	postID := ev.Param("postId")
	if postID == "" {
		return nil
	}
	post, err := repo.GetPost(ctx, d.DB, postID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if post.AuthorID == "" || post.AuthorID == commenterID {
		return nil
	}

	actorName, err := repo.GetUserName(ctx, d.DB, commenterID)
	if err != nil {
		return err
	}
	preview := services.TrimPreview(ev.After.Str("text"))
	return d.Notify.Notify(ctx, post.AuthorID,
		services.NewCommentPayload(commenterID, actorName, postID, ev.ID, preview))
}

// onHelpfulCreated notifies the post author that someone marked the post
// helpful. The actor is the subcollection document ID.
func (d *Dispatcher) onHelpfulCreated(ctx context.Context, ev Event) error {
	postID := ev.Param("postId")
	actorID := ev.ID
	if postID == "" || actorID == "" {
		return nil
	}
	post, err := repo.GetPost(ctx, d.DB, postID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if post.AuthorID == "" || post.AuthorID == actorID {
		return nil
	}

	actorName, err := repo.GetUserName(ctx, d.DB, actorID)
	if err != nil {
		return err
	}
	preview := services.TrimPreview(firstNonEmpty(post.Question, post.Subject))
	return d.Notify.Notify(ctx, post.AuthorID,
		services.NewHelpfulPayload(actorID, actorName, postID, preview))
}

// onFriendRequestCreated notifies the recipient of a pending request.
func (d *Dispatcher) onFriendRequestCreated(ctx context.Context, ev Event) error {
	toUserID := ev.After.Str("toUserID")
	fromUserID := ev.After.Str("fromUserID")
	if toUserID == "" || fromUserID == "" || toUserID == fromUserID {
		return nil
	}
	if status := ev.After.Str("status"); status != "" && status != "pending" {
		return nil
	}

	fromName, err := repo.GetUserName(ctx, d.DB, fromUserID)
	if err != nil {
		return err
	}
	return d.Notify.Notify(ctx, toUserID,
		services.NewFriendRequestPayload(fromUserID, fromName, ev.ID))
}

// onFriendRequestUpdated notifies the requester when their request flips
// to accepted. Any other status transition (or a no-op update) is ignored.
func (d *Dispatcher) onFriendRequestUpdated(ctx context.Context, ev Event) error {
	if ev.Before == nil || ev.After == nil {
		return nil
	}
	if ev.Before.Str("status") == ev.After.Str("status") {
		return nil
	}
	if ev.After.Str("status") != "accepted" {
		return nil
	}

	fromUserID := ev.After.Str("fromUserID")
	toUserID := ev.After.Str("toUserID")
	if fromUserID == "" || toUserID == "" || fromUserID == toUserID {
		return nil
	}

	toName, err := repo.GetUserName(ctx, d.DB, toUserID)
	if err != nil {
		return err
	}
	return d.Notify.Notify(ctx, fromUserID,
		services.NewFriendAcceptPayload(toUserID, toName, ev.ID))
}

// onChatMessageCreated notifies every chat participant except the sender.
func (d *Dispatcher) onChatMessageCreated(ctx context.Context, ev Event) error {
	chatID := ev.Param("chatId")
	senderID := ev.After.Str("senderId")
	if chatID == "" || senderID == "" {
		return nil
	}
	participants, err := repo.GetChatParticipants(ctx, d.DB, chatID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	senderName, err := repo.GetUserName(ctx, d.DB, senderID)
	if err != nil {
		return err
	}
	preview := services.TrimPreview(ev.After.Str("text"))
	payload := services.NewMessagePayload(senderID, senderName, chatID, ev.ID, preview)

	for _, userID := range participants {
		if userID == "" || userID == senderID {
			continue
		}
		if err := d.Notify.Notify(ctx, userID, payload); err != nil {
			return err
		}
	}
	return nil
}

// onMarketItemCreated stamps server-side defaults on a new listing and
// credits the seller's listing counter.
func (d *Dispatcher) onMarketItemCreated(ctx context.Context, ev Event) error {
	updates := map[string]any{}
	if ev.After.Str("status") == "" {
		updates["status"] = domain.ItemStatusActive
	}
	if ev.After.Str("currency") == "" {
		updates["currency"] = domain.DefaultCurrency
	}
	if !ev.After.Has("searchTokens") {
		tokens := SearchTokens(
			ev.After.Str("title"),
			ev.After.Str("description"),
			ev.After.Str("category"),
			ev.After.Str("sellerName"),
		)
		if len(tokens) > 0 {
			updates["search_tokens"] = datatypes.JSON(tokensJSON(tokens))
		}
	}
	if !ev.After.Has("createdAt") {
		updates["created_at"] = time.Now().UTC()
	}
	if err := repo.UpdateMarketItem(ctx, d.DB, ev.ID, updates); err != nil {
		return err
	}

	sellerID := ev.After.Str("sellerId")
	if sellerID == "" {
		return nil
	}
	return d.Progress.AddMarketListing(ctx, sellerID)
}

// onMarketOrderCreated stamps defaults and notifies the seller.
func (d *Dispatcher) onMarketOrderCreated(ctx context.Context, ev Event) error {
	updates := map[string]any{}
	if ev.After.Str("status") == "" {
		updates["status"] = domain.OrderStatusPending
	}
	if !ev.After.Has("createdAt") {
		updates["created_at"] = time.Now().UTC()
	}
	if err := repo.UpdateMarketOrder(ctx, d.DB, ev.ID, updates); err != nil {
		return err
	}

	sellerID := ev.After.Str("sellerId")
	buyerID := ev.After.Str("buyerId")
	itemID := ev.After.Str("itemId")
	if sellerID == "" || buyerID == "" || itemID == "" {
		return nil
	}

	itemTitle := "item"
	if item, err := repo.GetMarketItem(ctx, d.DB, itemID); err == nil && item.Title != "" {
		itemTitle = item.Title
	}
	buyerName, err := repo.GetUserName(ctx, d.DB, buyerID)
	if err != nil {
		return err
	}
	return d.Notify.Notify(ctx, sellerID,
		services.NewMarketOrderPayload(buyerID, buyerName, itemID, ev.ID, services.TrimPreview(itemTitle)))
}

// onMarketOrderUpdated reacts to an order completing: mark the item sold
// and credit the seller's sale counter.
func (d *Dispatcher) onMarketOrderUpdated(ctx context.Context, ev Event) error {
	if ev.Before == nil || ev.After == nil {
		return nil
	}
	if ev.Before.Str("status") == ev.After.Str("status") {
		return nil
	}
	if ev.After.Str("status") != domain.OrderStatusCompleted {
		return nil
	}

	sellerID := ev.After.Str("sellerId")
	buyerID := ev.After.Str("buyerId")
	itemID := ev.After.Str("itemId")

	if itemID != "" {
		if err := repo.MarkItemSold(ctx, d.DB, itemID, buyerID, time.Now()); err != nil {
			return err
		}
	}
	if sellerID == "" {
		return nil
	}
	return d.Progress.AddMarketSale(ctx, sellerID)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
