package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCurrentPeriodStart(t *testing.T) {
	now := time.Date(2025, 7, 19, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), CurrentPeriodStart(now))
}

func TestNextResetDate(t *testing.T) {
	now := time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), NextResetDate(now))
}

func TestEvaluate_UnlimitedNeverTrips(t *testing.T) {
	for _, limit := range []*int64{nil, int64Ptr(0), int64Ptr(-5)} {
		eval := Evaluate(1_000_000, limit)
		assert.False(t, eval.Exceeded)
		assert.False(t, eval.Warning)
		assert.Equal(t, 0, eval.PercentUsed)
	}
}

func TestEvaluate_WarningBoundary(t *testing.T) {
	limit := int64Ptr(200_000)

	below := Evaluate(159_999, limit)
	assert.False(t, below.Warning)

	at := Evaluate(160_000, limit)
	assert.True(t, at.Warning)
	assert.False(t, at.Exceeded)
}

func TestEvaluate_ExceededBoundary(t *testing.T) {
	limit := int64Ptr(200_000)

	under := Evaluate(199_999, limit)
	assert.False(t, under.Exceeded)

	at := Evaluate(200_000, limit)
	assert.True(t, at.Exceeded)
	assert.True(t, at.Warning)
	assert.Equal(t, 100, at.PercentUsed)
}

func TestEvaluate_Monotone(t *testing.T) {
	limit := int64Ptr(100_000)
	var prev Evaluation
	for used := int64(0); used <= 120_000; used += 5_000 {
		eval := Evaluate(used, limit)
		if prev.Warning {
			assert.True(t, eval.Warning, "warning regressed at %d", used)
		}
		if prev.Exceeded {
			assert.True(t, eval.Exceeded, "exceeded regressed at %d", used)
		}
		assert.GreaterOrEqual(t, eval.PercentUsed, prev.PercentUsed)
		prev = eval
	}
}

func TestEstimateCost(t *testing.T) {
	// sonnet: $3 in / $15 out per million.
	cost := EstimateCost("claude-sonnet-4-20250514", 1000, 2000)
	assert.InDelta(t, 0.033, cost, 1e-9)

	// opus: $15 in / $75 out.
	cost = EstimateCost("claude-opus-4-20250514", 1_000_000, 1_000_000)
	assert.InDelta(t, 90.0, cost, 1e-9)

	assert.Zero(t, EstimateCost("not-a-model", 1000, 1000))
}

func TestEstimateCost_Rounding(t *testing.T) {
	cost := EstimateCost("claude-3-5-haiku-20241022", 1, 1)
	// (0.8 + 4) / 1e6 = 4.8e-6, which rounds up to 5e-6 at six decimals.
	assert.InDelta(t, 0.000005, cost, 1e-9)
	require.Equal(t, cost, EstimateCost("claude-3-5-haiku-20241022", 1, 1))
}
