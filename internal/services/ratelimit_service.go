// Package services – RateLimitService
//
// This file implements a true sliding-window rate limiter over persisted
// state: each key owns an ordered list of admitted-request timestamps, and
// every check re-evaluates the trailing window against the current clock.
// There are no fixed wall-clock buckets, so the quota never resets in bulk.
//
// The read-filter-decide-write sequence runs as one atomic transaction per
// key (via txn.Run), which is what keeps two simultaneous admits at the
// limit boundary from both slipping past the cap. A rejected attempt is
// read-only: it must not mutate state, or bursts of rejected traffic would
// starve future windows.
package services

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/seshhq/sesh-backend/internal/repo"
	"github.com/seshhq/sesh-backend/internal/txn"
)

// RateLimitResult is the outcome of one admission check.
type RateLimitResult struct {
	// Allowed reports whether the request was admitted.
	Allowed bool
	// Remaining is the number of admissions left in the current window.
	Remaining int
	// ResetAt is when the oldest in-window event ages out, freeing a slot.
	ResetAt time.Time
	// Limit echoes the configured quota.
	Limit int
}

// RateLimitService enforces a per-key quota over a rolling time window.
//
// Limit <= 0 disables limiting (every check is allowed with a degenerate
// result). Window is clamped to a minimum of one second. Now is injectable
// for deterministic tests and defaults to time.Now.
type RateLimitService struct {
	DB     *gorm.DB
	Limit  int
	Window time.Duration

	// Now supplies the clock; nil means time.Now.
	Now func() time.Time
}

// NewRateLimitService constructs a limiter with the given quota and window.
func NewRateLimitService(db *gorm.DB, limit int, window time.Duration) *RateLimitService {
	return &RateLimitService{DB: db, Limit: limit, Window: window}
}

// Check runs one admission decision for key.
//
// Semantics:
//   - Events older than now-window are ignored (and dropped on the next
//     admit); the surviving events are considered in ascending order.
//   - At quota: reject without writing. ResetAt is the earliest in-window
//     event plus the window, i.e. the moment a slot frees up.
//   - Under quota: admit, append now, and trim the stored list to the last
//     Limit entries so storage stays bounded.
func (s *RateLimitService) Check(ctx context.Context, key string) (RateLimitResult, error) {
	limit := s.Limit
	if limit < 0 {
		limit = 0
	}
	window := s.Window
	if window < time.Second {
		window = time.Second
	}
	now := s.clock()
	nowMS := now.UnixMilli()
	windowMS := window.Milliseconds()

	if limit == 0 {
		// Rate limiting disabled for this key space.
		return RateLimitResult{
			Allowed:   true,
			Remaining: 0,
			ResetAt:   time.UnixMilli(nowMS + windowMS),
			Limit:     0,
		}, nil
	}

	var result RateLimitResult
	err := txn.Run(ctx, s.DB, func(tx *gorm.DB) error {
		events, err := repo.GetRateLimitEvents(ctx, tx, key)
		if err != nil {
			return err
		}

		cutoff := nowMS - windowMS
		recent := events[:0:0]
		for _, ts := range events {
			if ts >= cutoff {
				recent = append(recent, ts)
			}
		}
		sort.Slice(recent, func(i, j int) bool { return recent[i] < recent[j] })

		if len(recent) >= limit {
			result = RateLimitResult{
				Allowed:   false,
				Remaining: 0,
				ResetAt:   time.UnixMilli(recent[0] + windowMS),
				Limit:     limit,
			}
			// Read-only on reject.
			return nil
		}

		recent = append(recent, nowMS)
		sort.Slice(recent, func(i, j int) bool { return recent[i] < recent[j] })
		if len(recent) > limit {
			recent = recent[len(recent)-limit:]
		}
		if err := repo.PutRateLimitEvents(ctx, tx, key, recent, now); err != nil {
			return err
		}

		result = RateLimitResult{
			Allowed:   true,
			Remaining: limit - len(recent),
			ResetAt:   time.UnixMilli(recent[0] + windowMS),
			Limit:     limit,
		}
		return nil
	})
	if err != nil {
		return RateLimitResult{}, err
	}
	return result, nil
}

func (s *RateLimitService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
