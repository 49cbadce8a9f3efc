// Package achievements implements the achievement catalog and the pure
// evaluation logic that decides which reward tiers a counter change has
// newly crossed. The catalog is immutable configuration loaded once at
// process start and passed explicitly into the evaluator, so evaluation is
// a pure function and testable without a live database.
package achievements

import (
	"fmt"

	"github.com/seshhq/sesh-backend/internal/domain"
)

// Entry is one achievement definition: the counter field it watches, an
// ascending list of thresholds, and the parallel reward/name lists (one per
// tier). Entries are declared in catalog order; evaluation iterates them in
// that order.
type Entry struct {
	Key        string
	Field      string
	Thresholds []int64
	Rewards    []int64
	Names      []string
}

// Catalog is an immutable, validated set of achievement entries.
type Catalog struct {
	entries []Entry
}

// NewCatalog validates entries and returns a Catalog. It enforces the
// invariants the evaluator depends on: non-empty keys and fields, equal
// lengths for thresholds/rewards/names, and strictly ascending thresholds.
// A misconfigured catalog is rejected here so it can never produce
// duplicate or out-of-order tier grants at runtime.
func NewCatalog(entries []Entry) (*Catalog, error) {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Key == "" || e.Field == "" {
			return nil, fmt.Errorf("achievements: entry %q: key and field are required", e.Key)
		}
		if _, dup := seen[e.Key]; dup {
			return nil, fmt.Errorf("achievements: duplicate key %q", e.Key)
		}
		seen[e.Key] = struct{}{}
		if len(e.Thresholds) == 0 {
			return nil, fmt.Errorf("achievements: entry %q: at least one tier is required", e.Key)
		}
		if len(e.Rewards) != len(e.Thresholds) || len(e.Names) != len(e.Thresholds) {
			return nil, fmt.Errorf("achievements: entry %q: thresholds, rewards and names must have equal length", e.Key)
		}
		for i, t := range e.Thresholds {
			if t <= 0 {
				return nil, fmt.Errorf("achievements: entry %q: threshold %d must be positive", e.Key, i)
			}
			if i > 0 && t <= e.Thresholds[i-1] {
				return nil, fmt.Errorf("achievements: entry %q: thresholds must be strictly ascending", e.Key)
			}
		}
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Catalog{entries: cp}, nil
}

// Entries returns the catalog entries in declaration order.
func (c *Catalog) Entries() []Entry { return c.entries }

// Fields returns the distinct counter fields tracked by the catalog, in
// declaration order. Used by the recheck operation to re-evaluate every
// tracked counter.
func (c *Catalog) Fields() []string {
	var out []string
	seen := make(map[string]struct{}, len(c.entries))
	for _, e := range c.entries {
		if _, ok := seen[e.Field]; ok {
			continue
		}
		seen[e.Field] = struct{}{}
		out = append(out, e.Field)
	}
	return out
}

// TierKey derives the per-tier achievement key: "{key}_{tierIndex}".
func TierKey(key string, tier int) string {
	return fmt.Sprintf("%s_%d", key, tier)
}

// Default returns the built-in catalog shipped with the app. It is validated
// once at package init; a broken built-in catalog is a programming error.
func Default() *Catalog { return defaultCatalog }

var defaultCatalog = mustCatalog([]Entry{
	{
		Key:        "first_post",
		Field:      domain.FieldPostCount,
		Thresholds: []int64{1, 10, 50},
		Rewards:    []int64{50, 100, 200},
		Names:      []string{"First Question", "Curious Mind", "Question Master"},
	},
	{
		Key:        "helpful_student",
		Field:      domain.FieldTotalReplies,
		Thresholds: []int64{1, 5, 25},
		Rewards:    []int64{30, 60, 150},
		Names:      []string{"First Answer", "Helpful Student", "Community Hero"},
	},
	{
		Key:        "vault_contributor",
		Field:      domain.FieldVaultUploads,
		Thresholds: []int64{1, 5, 20},
		Rewards:    []int64{40, 80, 200},
		Names:      []string{"First Upload", "Vault Contributor", "Knowledge Keeper"},
	},
	{
		Key:        "focus_master",
		Field:      domain.FieldSeshFocusHours,
		Thresholds: []int64{1, 10, 50},
		Rewards:    []int64{25, 100, 500},
		Names:      []string{"Focus Beginner", "Focus Master", "Focus Titan"},
	},
})

func mustCatalog(entries []Entry) *Catalog {
	c, err := NewCatalog(entries)
	if err != nil {
		panic(err)
	}
	return c
}
