// Package push abstracts the mobile push-delivery transport behind a small
// Sender interface so the fan-out service and its tests never touch the
// concrete FCM client.
package push

import "context"

// MaxBatchTokens is the transport's per-call token cap. Callers must chunk
// token lists to at most this size before invoking Send.
const MaxBatchTokens = 500

// Message is the displayable payload of one push notification plus the
// type/correlation data delivered alongside it.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Result reports the outcome for one token of a batch, index-aligned with
// the tokens passed to Send.
type Result struct {
	// Invalid is true when the transport reported the token as no longer
	// registered (or never valid); such tokens should be pruned.
	Invalid bool
	// Err is the per-token delivery error, nil on success. A non-nil Err
	// with Invalid=false is a transient failure and is not retried.
	Err error
}

// Sender delivers one batch of at most MaxBatchTokens tokens.
type Sender interface {
	Send(ctx context.Context, tokens []string, msg Message) ([]Result, error)
}
