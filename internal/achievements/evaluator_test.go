package achievements

import (
	"math"
	"testing"

	"github.com/seshhq/sesh-backend/internal/domain"
)

func TestEvaluate_SingleTier(t *testing.T) {
	c := Default()
	unlocks := c.Evaluate(domain.FieldPostCount, 1, nil)
	if len(unlocks) != 1 {
		t.Fatalf("unlocks = %d, want 1", len(unlocks))
	}
	u := unlocks[0]
	if u.TierKey != "first_post_0" || u.RewardXP != 50 || u.Name != "First Question" {
		t.Fatalf("unexpected unlock: %+v", u)
	}
}

func TestEvaluate_MultiTierJump(t *testing.T) {
	// A single jump from 0 to 60 posts crosses all three thresholds at once.
	c := Default()
	unlocks := c.Evaluate(domain.FieldPostCount, 60, nil)
	if len(unlocks) != 3 {
		t.Fatalf("unlocks = %d, want 3", len(unlocks))
	}
	var total int64
	for i, u := range unlocks {
		if u.Tier != i {
			t.Fatalf("unlocks out of tier order: %+v", unlocks)
		}
		total += u.RewardXP
	}
	if total != 350 {
		t.Fatalf("summed reward = %d, want 350", total)
	}
}

func TestEvaluate_AlreadyUnlockedSkipped(t *testing.T) {
	c := Default()
	unlocked := map[string]bool{"first_post_0": true, "first_post_1": true}
	unlocks := c.Evaluate(domain.FieldPostCount, 60, unlocked)
	if len(unlocks) != 1 {
		t.Fatalf("unlocks = %d, want 1", len(unlocks))
	}
	if unlocks[0].TierKey != "first_post_2" {
		t.Fatalf("unlock = %q, want first_post_2", unlocks[0].TierKey)
	}
}

func TestEvaluate_BelowThreshold(t *testing.T) {
	c := Default()
	if got := c.Evaluate(domain.FieldTotalReplies, 0, nil); got != nil {
		t.Fatalf("unlocks below threshold = %v, want nil", got)
	}
}

func TestEvaluate_UnknownField(t *testing.T) {
	c := Default()
	if got := c.Evaluate("nope", 100, nil); got != nil {
		t.Fatalf("unlocks for unknown field = %v, want nil", got)
	}
}

func TestEvaluate_BadValues(t *testing.T) {
	c := Default()
	for _, v := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := c.Evaluate(domain.FieldPostCount, v, nil); got != nil {
			t.Fatalf("value %v yielded unlocks %v, want nil", v, got)
		}
	}
}

func TestEvaluate_FractionalHours(t *testing.T) {
	// 0.5 focus hours is below the first threshold of 1; exactly 1.0 crosses it.
	c := Default()
	if got := c.Evaluate(domain.FieldSeshFocusHours, 0.5, nil); got != nil {
		t.Fatalf("0.5 hours yielded %v, want nil", got)
	}
	got := c.Evaluate(domain.FieldSeshFocusHours, 1.0, nil)
	if len(got) != 1 || got[0].TierKey != "focus_master_0" {
		t.Fatalf("1.0 hours yielded %v, want focus_master_0", got)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	c := Default()
	a := c.Evaluate(domain.FieldVaultUploads, 20, nil)
	b := c.Evaluate(domain.FieldVaultUploads, 20, nil)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic evaluation: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic evaluation at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}
