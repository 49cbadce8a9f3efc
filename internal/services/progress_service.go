// Package services – ProgressService
//
// This file implements the transactional counter-update trigger: the state
// machine that, given a qualifying user event, atomically increments the
// tracked counter, evaluates the achievement catalog against the new value,
// grants every newly crossed tier exactly once, and credits XP (tier
// rewards plus the fixed per-event bonus) in the same transaction.
//
// All entry points run on txn.Run, so a conflicting concurrent write causes
// the whole read-evaluate-write sequence to re-execute against fresh state.
// Tier grants are additionally guarded by the unique (user_id, tier_key)
// index: even a replayed event can never award the same tier twice.
package services

import (
	"context"
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/seshhq/sesh-backend/internal/achievements"
	"github.com/seshhq/sesh-backend/internal/domain"
	"github.com/seshhq/sesh-backend/internal/observability"
	"github.com/seshhq/sesh-backend/internal/repo"
	"github.com/seshhq/sesh-backend/internal/txn"
)

// Per-event XP bonuses credited alongside any tier rewards.
const (
	bonusXPPost        = 10
	bonusXPReply       = 5
	bonusXPVaultUpload = 20
	bonusXPPerHour     = 10
)

// ProgressService owns every mutation of user counters, achievements, and
// XP. The catalog is injected so evaluation is configuration, not ambient
// global state.
type ProgressService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Catalog is the immutable achievement configuration.
	Catalog *achievements.Catalog
}

// NewProgressService constructs a ProgressService on the default catalog.
func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{DB: db, Catalog: achievements.Default()}
}

// AddPost records one authored post: postCount+1, +10 XP bonus.
func (s *ProgressService) AddPost(ctx context.Context, userID string) error {
	return s.increment(ctx, userID, domain.FieldPostCount, 1, bonusXPPost)
}

// AddReply records one authored reply: totalReplies+1, +5 XP bonus.
func (s *ProgressService) AddReply(ctx context.Context, userID string) error {
	return s.increment(ctx, userID, domain.FieldTotalReplies, 1, bonusXPReply)
}

// AddVaultUpload records one vault upload: vaultUploads+1, +20 XP bonus.
func (s *ProgressService) AddVaultUpload(ctx context.Context, userID string) error {
	return s.increment(ctx, userID, domain.FieldVaultUploads, 1, bonusXPVaultUpload)
}

// AddMarketListing records one marketplace listing. No bonus XP and no
// catalog entry tracks the counter; the write still goes through the same
// transactional path.
func (s *ProgressService) AddMarketListing(ctx context.Context, userID string) error {
	return s.increment(ctx, userID, domain.FieldMarketListings, 1, 0)
}

// AddMarketSale records one completed marketplace sale for the seller.
func (s *ProgressService) AddMarketSale(ctx context.Context, userID string) error {
	return s.increment(ctx, userID, domain.FieldMarketSales, 1, 0)
}

// AddFocusHours records a completed focus session of the given length.
// The XP bonus is 10 per hour, rounded to the nearest whole point for
// fractional sessions. Non-positive or non-finite hours are rejected with
// ErrInvalidHours; the silent no-progress path in the evaluator only covers
// replayed or garbled events, not deliberate caller input.
func (s *ProgressService) AddFocusHours(ctx context.Context, userID string, hours float64) error {
	tr := otel.Tracer("services/ProgressService")
	ctx, span := tr.Start(ctx, "AddFocusHours",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Float64("focus.hours", hours),
		),
	)
	defer span.End()

	if hours <= 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return ErrInvalidHours
	}
	bonus := int64(math.Round(hours * bonusXPPerHour))
	return s.increment(ctx, userID, domain.FieldSeshFocusHours, hours, bonus)
}

// Recheck re-runs achievement evaluation against the user's stored counter
// values for every field the catalog tracks, without applying any delta.
// It repairs a record whose achievements drifted out of sync with its
// counters, e.g. after a catalog change introduced new tiers. Unlike the
// event-driven entry points, a missing user is surfaced as ErrUserNotFound
// because the caller asked about their own record explicitly.
func (s *ProgressService) Recheck(ctx context.Context, userID string) error {
	tr := otel.Tracer("services/ProgressService")
	ctx, span := tr.Start(ctx, "Recheck",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return txn.Run(ctx, s.DB, func(tx *gorm.DB) error {
		u, err := repo.GetUser(ctx, tx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		unlocked, err := repo.ListUnlockedTierKeys(ctx, tx, userID)
		if err != nil {
			return err
		}

		var reward int64
		for _, field := range s.Catalog.Fields() {
			value, ok := u.Counter(field)
			if !ok {
				continue
			}
			granted, err := s.grant(ctx, tx, userID, s.Catalog.Evaluate(field, value, unlocked))
			if err != nil {
				return err
			}
			reward += granted
		}
		if reward == 0 {
			return nil
		}
		return repo.ApplyProgress(ctx, tx, userID, "", 0, reward)
	})
}

// increment applies delta to the named counter inside one atomic
// transaction: read the user, compute the new value, evaluate the catalog
// against the tier keys already granted (re-read fresh in this same
// transaction), stage the tier rows, and write back the counter together
// with an atomic XP credit for rewards plus bonus.
//
// A missing user record is not an error: the record may legitimately not
// exist yet (or anymore) for the subject of a replayed event, so the whole
// operation is silently skipped.
func (s *ProgressService) increment(ctx context.Context, userID, field string, delta float64, bonusXP int64) error {
	column, ok := domain.CounterColumn(field)
	if !ok {
		return ErrUnknownField
	}

	return txn.Run(ctx, s.DB, func(tx *gorm.DB) error {
		u, err := repo.GetUser(ctx, tx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		current, _ := u.Counter(field)
		newValue := current + delta

		unlocked, err := repo.ListUnlockedTierKeys(ctx, tx, userID)
		if err != nil {
			return err
		}
		reward, err := s.grant(ctx, tx, userID, s.Catalog.Evaluate(field, newValue, unlocked))
		if err != nil {
			return err
		}

		return repo.ApplyProgress(ctx, tx, userID, column, newValue, reward+bonusXP)
	})
}

// grant inserts one row per unlock and returns the XP earned. An unlock
// whose tier row already exists contributes nothing: the grant happened in
// some earlier transaction and its reward was credited then.
func (s *ProgressService) grant(ctx context.Context, tx *gorm.DB, userID string, unlocks []achievements.Unlock) (int64, error) {
	var reward int64
	now := time.Now().UTC()
	for _, u := range unlocks {
		rec := &domain.UserAchievement{
			UserID:     userID,
			TierKey:    u.TierKey,
			Name:       u.Name,
			Tier:       u.Tier,
			RewardXP:   u.RewardXP,
			UnlockedAt: now,
		}
		if err := repo.CreateUserAchievement(ctx, tx, rec); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				continue
			}
			return 0, err
		}
		observability.AchievementsUnlocked.WithLabelValues(u.Key).Inc()
		reward += u.RewardXP
	}
	return reward, nil
}

// ListAchievements returns the user's unlocked achievement tiers.
func (s *ProgressService) ListAchievements(ctx context.Context, userID string) ([]domain.UserAchievement, error) {
	return repo.ListUserAchievements(ctx, s.DB, userID)
}
