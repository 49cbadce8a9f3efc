// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file applies the per-user sliding-window rate limit to the
// authenticated API surface. The decision comes from a RateLimitChecker
// (backed by persisted window state) rather than an in-process token bucket,
// so the quota holds across restarts and replicas.
//
// Response contract:
//   - Every decision sets x-rate-limit-limit, x-rate-limit-remaining, and
//     x-rate-limit-reset (unix seconds, rounded up).
//   - Rejections return 429 with code "rate_limited" and a retry-after
//     header of at least 1 second.
//   - A checker failure returns 503 with code "rate_limit_unavailable";
//     requests are never silently admitted when the limiter is down.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seshhq/sesh-backend/internal/services"
)

// RateLimitChecker decides whether a keyed request may proceed.
type RateLimitChecker interface {
	Check(ctx context.Context, key string) (services.RateLimitResult, error)
}

// RateLimit returns a middleware enforcing the checker's quota per user.
// It requires Auth() to have run first; a request without a user ID in the
// context is rejected with 401 "missing_user".
func RateLimit(checker RateLimitChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := UserIDFrom(c)
		if uid == "" {
			abortJSON(c, http.StatusUnauthorized, "missing_user", "no authenticated user")
			return
		}

		res, err := checker.Check(c.Request.Context(), "user:"+uid)
		if err != nil {
			LoggerFrom(c).Error().Err(err).Str("user_id", uid).Msg("rate limit check failed")
			abortJSON(c, http.StatusServiceUnavailable, "rate_limit_unavailable", "rate limiter unavailable")
			return
		}

		setRateHeaders(c, res)

		if !res.Allowed {
			rateLimited.Inc()
			c.Header("retry-after", strconv.FormatInt(retryAfterSeconds(res.ResetAt), 10))
			abortJSON(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
			return
		}

		c.Next()
	}
}

// setRateHeaders writes the quota headers for one decision. The reset header
// is the unix-second ceiling of ResetAt so clients never retry early.
func setRateHeaders(c *gin.Context, res services.RateLimitResult) {
	c.Header("x-rate-limit-limit", strconv.Itoa(res.Limit))
	c.Header("x-rate-limit-remaining", strconv.Itoa(res.Remaining))
	c.Header("x-rate-limit-reset", strconv.FormatInt(ceilUnixSeconds(res.ResetAt), 10))
}

func ceilUnixSeconds(t time.Time) int64 {
	ms := t.UnixMilli()
	return (ms + 999) / 1000
}

// retryAfterSeconds returns the whole seconds until resetAt, minimum 1.
func retryAfterSeconds(resetAt time.Time) int64 {
	ms := time.Until(resetAt).Milliseconds()
	secs := (ms + 999) / 1000
	if secs < 1 {
		secs = 1
	}
	return secs
}
