package achievements

import "math"

// Unlock is one newly crossed reward tier produced by Evaluate.
type Unlock struct {
	// TierKey is the stable identity of the grant ("{key}_{tier}").
	TierKey string
	// Key is the parent achievement key.
	Key string
	// Tier is the zero-based tier index.
	Tier int
	// RewardXP is the XP credited for this tier.
	RewardXP int64
	// Name is the display name of the tier.
	Name string
}

// Evaluate computes the tiers newly crossed by a counter reaching newValue.
//
// For every catalog entry watching field, and for every tier index i with
// newValue >= thresholds[i] whose tier key is not in unlocked, an Unlock is
// emitted. Entries are visited in catalog-declaration order, tiers
// ascending, and every satisfied tier is emitted (a single jump across
// multiple thresholds unlocks them all at once).
//
// Evaluate is a pure function: it performs no I/O and the same inputs always
// yield the same result, which is what makes replay idempotence testable.
// Unknown fields and negative or non-finite values yield no unlocks.
func (c *Catalog) Evaluate(field string, newValue float64, unlocked map[string]bool) []Unlock {
	if newValue < 0 || math.IsNaN(newValue) || math.IsInf(newValue, 0) {
		return nil
	}

	var out []Unlock
	for _, e := range c.entries {
		if e.Field != field {
			continue
		}
		for i, threshold := range e.Thresholds {
			tierKey := TierKey(e.Key, i)
			if newValue < float64(threshold) || unlocked[tierKey] {
				continue
			}
			out = append(out, Unlock{
				TierKey:  tierKey,
				Key:      e.Key,
				Tier:     i,
				RewardXP: e.Rewards[i],
				Name:     e.Names[i],
			})
		}
	}
	return out
}
