package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, cfg Config) *Tracker {
	t.Helper()
	tr, err := NewTracker(context.Background(), NewMemoryStore(), cfg)
	require.NoError(t, err)
	tr.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return tr
}

func TestGetWaitTime_UnseenEngineUsesOptimisticDefault(t *testing.T) {
	tr := newTestTracker(t, Config{Enabled: true})
	require.Equal(t, 0.0, tr.GetWaitTime("local"))
	require.Equal(t, 0.1, tr.GetWaitTime("searxng"))
	require.Equal(t, defaultOptimisticWait, tr.GetWaitTime("some_new_engine"))
}

func TestGetWaitTime_Disabled(t *testing.T) {
	tr := newTestTracker(t, Config{Enabled: false})
	require.Equal(t, disabledWait, tr.GetWaitTime("anything"))
}

func TestRecordOutcome_NeedsThreeAttemptsBeforeEstimating(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, Config{Enabled: true})

	tr.RecordOutcome(ctx, "engine", 1.0, true, 1, "", nil)
	tr.RecordOutcome(ctx, "engine", 1.0, true, 1, "", nil)
	_, ok := tr.Stats("engine")
	require.False(t, ok, "estimate should not form before 3 attempts")

	tr.RecordOutcome(ctx, "engine", 1.0, true, 1, "", nil)
	est, ok := tr.Stats("engine")
	require.True(t, ok)
	require.InDelta(t, 1.0, est.BaseWaitSeconds, 1e-9)
}

func TestRecordOutcome_AllFailuresRaisesBase(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, Config{Enabled: true})

	tr.RecordOutcome(ctx, "engine", 2.0, false, 1, "timeout", nil)
	tr.RecordOutcome(ctx, "engine", 2.0, false, 2, "timeout", nil)
	tr.RecordOutcome(ctx, "engine", 2.0, false, 3, "timeout", nil)

	est, ok := tr.Stats("engine")
	require.True(t, ok)
	// 2.0 * 1.5 = 3.0, well under the 10s cap.
	require.InDelta(t, 3.0, est.BaseWaitSeconds, 1e-9)
	require.Equal(t, 0.0, est.SuccessRate)
}

func TestRecordOutcome_BaseNeverExceedsAbsoluteCap(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, Config{Enabled: true})

	for i := 0; i < 5; i++ {
		tr.RecordOutcome(ctx, "engine", 9.0, false, i+1, "rate_limited", nil)
	}
	est, ok := tr.Stats("engine")
	require.True(t, ok)
	require.LessOrEqual(t, est.BaseWaitSeconds, absoluteMaxWait)
	require.LessOrEqual(t, est.MaxWaitSeconds, absoluteMaxWait)
}

func TestGetWaitTime_KnownEngineClampsToEstimateBounds(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, Config{Enabled: true})
	for i := 0; i < 10; i++ {
		tr.RecordOutcome(ctx, "engine", 2.0, true, 1, "", nil)
	}
	est, ok := tr.Stats("engine")
	require.True(t, ok)

	// Sweep the jitter range, exploration and exploitation branches both.
	for _, r := range []float64{0.0, 0.05, 0.3, 0.5, 0.99} {
		tr.rand = func() float64 { return r }
		w := tr.GetWaitTime("engine")
		require.GreaterOrEqual(t, w, est.MinWaitSeconds)
		require.LessOrEqual(t, w, est.MaxWaitSeconds)
		require.LessOrEqual(t, w, absoluteMaxWait)
	}
}

func TestRecordOutcome_ConsecutiveSuccessesNeverRaiseBase(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, Config{Enabled: true})

	// Seed a high estimate with rate-limit failures.
	for i := 0; i < 3; i++ {
		tr.RecordOutcome(ctx, "engine", 4.0, false, i+1, "rate_limited", nil)
	}
	before, ok := tr.Stats("engine")
	require.True(t, ok)

	prev := before.BaseWaitSeconds
	for i := 0; i < 5; i++ {
		tr.RecordOutcome(ctx, "engine", 1.0, true, 1, "", nil)
		est, ok := tr.Stats("engine")
		require.True(t, ok)
		require.LessOrEqual(t, est.BaseWaitSeconds, prev)
		prev = est.BaseWaitSeconds
	}
}

func TestLearning_SettlesNearRealLimit(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, Config{Enabled: true})
	tr.rand = func() float64 { return 0.5 } // exploitation, center of the band

	// Mock engine that rejects any wait under 2s and succeeds otherwise.
	for i := 0; i < 20; i++ {
		w := tr.GetWaitTime("mock")
		tr.RecordOutcome(ctx, "mock", w, w >= 2.0, 1, "rate_limited", nil)
	}

	est, ok := tr.Stats("mock")
	require.True(t, ok)
	require.GreaterOrEqual(t, est.BaseWaitSeconds, 1.5)
	require.LessOrEqual(t, est.BaseWaitSeconds, 3.0)
}

func TestApplyProfile_ConservativeReducesExplorationAndLearning(t *testing.T) {
	cfg := applyProfile(Config{Exploration: 0.1, Learning: 0.3, Profile: ProfileConservative}.withDefaults())
	require.InDelta(t, 0.05, cfg.Exploration, 1e-9)
	require.InDelta(t, 0.2, cfg.Learning, 1e-9)
}

func TestApplyProfile_AggressiveRaisesExplorationAndLearning(t *testing.T) {
	cfg := applyProfile(Config{Exploration: 0.1, Learning: 0.3, Profile: ProfileAggressive}.withDefaults())
	require.InDelta(t, 0.15, cfg.Exploration, 1e-9)
	require.InDelta(t, 0.39, cfg.Learning, 1e-9)
}

func TestResetEngine_ClearsLearnedState(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, Config{Enabled: true})
	tr.RecordOutcome(ctx, "engine", 1.0, true, 1, "", nil)
	tr.RecordOutcome(ctx, "engine", 1.0, true, 1, "", nil)
	tr.RecordOutcome(ctx, "engine", 1.0, true, 1, "", nil)
	_, ok := tr.Stats("engine")
	require.True(t, ok)

	require.NoError(t, tr.ResetEngine(ctx, "engine"))
	_, ok = tr.Stats("engine")
	require.False(t, ok)
}

func TestQualityStatus(t *testing.T) {
	require.Equal(t, "CRITICAL", QualityStatus(0.5))
	require.Equal(t, "WARNING", QualityStatus(2))
	require.Equal(t, "CAUTION", QualityStatus(4))
	require.Equal(t, "GOOD", QualityStatus(7))
	require.Equal(t, "EXCELLENT", QualityStatus(10))
}
