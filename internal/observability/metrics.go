package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters published by the service layer. HTTP traffic metrics live
// with the Gin middleware; everything measured below happens regardless of
// which transport triggered it.
var (
	// AchievementsUnlocked counts tier grants, by achievement key.
	AchievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Total number of achievement tiers unlocked.",
		},
		[]string{"achievement"},
	)

	// NotificationsCreated counts notification records written, by type.
	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notification records created.",
		},
		[]string{"type"},
	)

	// PushTokensPruned counts device tokens removed after delivery rejected
	// them as invalid or unregistered.
	PushTokensPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "push_tokens_pruned_total",
			Help: "Total number of invalid push tokens pruned.",
		},
	)
)

func init() {
	prometheus.MustRegister(AchievementsUnlocked, NotificationsCreated, PushTokensPruned)
}
