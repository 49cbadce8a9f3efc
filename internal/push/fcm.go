// FCM-backed Sender implementation.
package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"golang.org/x/time/rate"
)

// FCMSender delivers batches through Firebase Cloud Messaging multicast.
// Outbound calls are throttled by a token bucket so a burst of fan-outs
// (e.g. a message to a large group chat) cannot hammer the FCM API.
type FCMSender struct {
	client  *messaging.Client
	limiter *rate.Limiter
}

// NewFCMSender wraps an initialized FCM messaging client.
func NewFCMSender(client *messaging.Client) *FCMSender {
	return &FCMSender{
		client: client,
		// 50 multicast calls/s sustained, bursts of 100.
		limiter: rate.NewLimiter(rate.Limit(50), 100),
	}
}

// Send delivers one multicast batch and maps per-token outcomes.
// Tokens FCM reports as unregistered or malformed are flagged Invalid so
// the caller can prune them.
func (s *FCMSender) Send(ctx context.Context, tokens []string, msg Message) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > MaxBatchTokens {
		return nil, fmt.Errorf("push: batch of %d exceeds %d tokens", len(tokens), MaxBatchTokens)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(tokens))
	for i, r := range resp.Responses {
		if r.Success {
			continue
		}
		results[i] = Result{
			Invalid: messaging.IsUnregistered(r.Error) || errorutils.IsInvalidArgument(r.Error),
			Err:     r.Error,
		}
	}
	return results, nil
}
