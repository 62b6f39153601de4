package telemetry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"opsd/internal/domain"
)

type scriptedSource struct {
	id     string
	err    error
	checks atomic.Int64
}

func (s *scriptedSource) ID() string { return s.id }

func (s *scriptedSource) Check(context.Context) error {
	s.checks.Add(1)
	return s.err
}

type memGate struct {
	enabled bool
}

func (g *memGate) Enabled() (bool, error) { return g.enabled, nil }

func (g *memGate) SetEnabled(enabled bool) error {
	g.enabled = enabled
	return nil
}

func TestFailingSourceDoesNotPoisonHealthyOne(t *testing.T) {
	agg := NewAggregator(AggregatorOptions{})
	broken := &scriptedSource{id: "broken", err: errors.New("always down")}
	healthy := &scriptedSource{id: "healthy"}
	agg.AddSource(broken, time.Minute)
	agg.AddSource(healthy, time.Minute)

	agg.CheckOnce(context.Background())

	snap := agg.Snapshot()
	require.Equal(t, domain.OverallDegraded, snap.Overall)
	require.True(t, snap.ActionRequired)

	byID := map[string]domain.HealthSample{}
	for _, sample := range snap.Sources {
		byID[sample.SourceID] = sample
	}
	require.Equal(t, domain.HealthError, byID["broken"].Status)
	require.Contains(t, byID["broken"].Detail, "always down")
	require.Equal(t, domain.HealthHealthy, byID["healthy"].Status)
}

func TestCompositeHealthyWhenAllSourcesHealthy(t *testing.T) {
	agg := NewAggregator(AggregatorOptions{})
	agg.AddSource(&scriptedSource{id: "a"}, time.Minute)
	agg.AddSource(&scriptedSource{id: "b"}, time.Minute)

	agg.CheckOnce(context.Background())

	snap := agg.Snapshot()
	require.Equal(t, domain.OverallHealthy, snap.Overall)
	require.False(t, snap.ActionRequired)
	require.Zero(t, snap.RecentFailures)
}

type fixedRuns struct {
	runs []domain.FlowRun
}

func (f fixedRuns) ListFlowRuns(context.Context, int) ([]domain.FlowRun, error) {
	return f.runs, nil
}

func TestRollingWindowCountsOnlyRecentFailures(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	source := NewOrchestratorSource(fixedRuns{runs: []domain.FlowRun{
		{ID: "old-failed", StateType: "FAILED", Created: now.Add(-40 * time.Minute)},
		{ID: "recent-failed", StateType: "FAILED", Created: now.Add(-10 * time.Minute)},
		{ID: "recent-ok", StateType: "COMPLETED", Created: now.Add(-5 * time.Minute)},
	}}, 10)

	agg := NewAggregator(AggregatorOptions{
		Window: 30 * time.Minute,
		Now:    func() time.Time { return now },
	})
	agg.AddSource(source, time.Minute)
	agg.CheckOnce(context.Background())

	snap := agg.Snapshot()
	require.Equal(t, 1, snap.RecentFailures)
	require.True(t, snap.ActionRequired)
	require.Equal(t, domain.OverallHealthy, snap.Overall)
}

func TestDisabledGateMeansZeroPolling(t *testing.T) {
	gate := &memGate{enabled: false}
	agg := NewAggregator(AggregatorOptions{Gate: gate})
	source := &scriptedSource{id: "orchestrator"}
	agg.AddSource(source, time.Millisecond)

	started, err := agg.Start(context.Background())
	require.NoError(t, err)
	require.False(t, started)
	require.False(t, agg.Running())

	time.Sleep(30 * time.Millisecond)
	require.Zero(t, source.checks.Load())
}

func TestSetEnabledStartsAndStopsPolling(t *testing.T) {
	gate := &memGate{enabled: false}
	agg := NewAggregator(AggregatorOptions{Gate: gate})
	source := &scriptedSource{id: "orchestrator"}
	agg.AddSource(source, 5*time.Millisecond)

	require.NoError(t, agg.SetEnabled(context.Background(), true))
	require.True(t, agg.Running())
	require.Eventually(t, func() bool { return source.checks.Load() >= 2 }, 2*time.Second, time.Millisecond)

	require.NoError(t, agg.SetEnabled(context.Background(), false))
	require.False(t, agg.Running())
	require.False(t, gate.enabled)

	settled := source.checks.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, settled, source.checks.Load())
}

func TestRefreshKicksImmediateRecheck(t *testing.T) {
	agg := NewAggregator(AggregatorOptions{})
	source := &scriptedSource{id: "lifecycle"}
	agg.AddSource(source, time.Hour)

	started, err := agg.Start(context.Background())
	require.NoError(t, err)
	require.True(t, started)
	defer agg.Stop()

	require.Eventually(t, func() bool { return source.checks.Load() == 1 }, 2*time.Second, time.Millisecond)

	agg.Refresh("lifecycle")
	require.Eventually(t, func() bool { return source.checks.Load() == 2 }, 2*time.Second, time.Millisecond)
}

func TestSourcesRecoverEachCycle(t *testing.T) {
	agg := NewAggregator(AggregatorOptions{})
	source := &scriptedSource{id: "lineage", err: errors.New("down")}
	agg.AddSource(source, time.Minute)

	agg.CheckOnce(context.Background())
	require.Equal(t, domain.OverallDegraded, agg.Snapshot().Overall)

	source.err = nil
	agg.CheckOnce(context.Background())
	require.Equal(t, domain.OverallHealthy, agg.Snapshot().Overall)
}
