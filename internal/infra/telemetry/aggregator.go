// Package telemetry aggregates multi-source health polling into a composite
// console status, with Prometheus instrumentation and an observability
// server.
package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"opsd/internal/domain"
)

// BoolPref is the persisted-preference surface backing the enablement gate.
type BoolPref interface {
	GetBool(key string, fallback bool) (bool, error)
	SetBool(key string, value bool) error
}

// Gate is the hard on/off switch for the scheduling layer.
type Gate interface {
	Enabled() (bool, error)
	SetEnabled(enabled bool) error
}

// PrefGate persists the gate as a boolean preference. Polling defaults to on
// until an operator turns it off.
type PrefGate struct {
	Prefs   BoolPref
	Key     string
	Default bool
}

func (g PrefGate) Enabled() (bool, error) {
	return g.Prefs.GetBool(g.Key, g.Default)
}

func (g PrefGate) SetEnabled(enabled bool) error {
	return g.Prefs.SetBool(g.Key, enabled)
}

// alwaysOn is the gate used when no preference store is wired.
type alwaysOn struct{}

func (alwaysOn) Enabled() (bool, error) { return true, nil }
func (alwaysOn) SetEnabled(bool) error { return nil }

type sourceEntry struct {
	source   Source
	interval time.Duration
	kick     chan struct{}
}

// Aggregator polls every registered source on its own schedule. One source's
// failure never blocks or invalidates another's poll.
type Aggregator struct {
	logger  *zap.Logger
	metrics *Metrics
	window  time.Duration
	gate    Gate
	nowFn   func() time.Time

	mu      sync.Mutex
	entries []sourceEntry
	samples map[string]domain.HealthSample
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

type AggregatorOptions struct {
	Window  time.Duration
	Gate    Gate
	Logger  *zap.Logger
	Metrics *Metrics
	Now     func() time.Time
}

func NewAggregator(opts AggregatorOptions) *Aggregator {
	if opts.Window <= 0 {
		opts.Window = time.Duration(domain.DefaultFailureWindowMinutes) * time.Minute
	}
	if opts.Gate == nil {
		opts.Gate = alwaysOn{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Aggregator{
		logger:  opts.Logger,
		metrics: opts.Metrics,
		window:  opts.Window,
		gate:    opts.Gate,
		nowFn:   opts.Now,
		samples: make(map[string]domain.HealthSample),
	}
}

// AddSource registers a source with its own poll interval. Call before
// Start.
func (a *Aggregator) AddSource(source Source, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, sourceEntry{
		source:   source,
		interval: interval,
		kick:     make(chan struct{}, 1),
	})
}

// Start spawns one poll loop per source. When the persisted gate is off this
// is a hard no-op: no goroutines, no network. Returns whether polling began.
func (a *Aggregator) Start(ctx context.Context) (bool, error) {
	enabled, err := a.gate.Enabled()
	if err != nil {
		return false, err
	}
	if !enabled {
		a.logger.Info("telemetry polling disabled by preference")
		return false, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return true, nil
	}
	pollCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running = true
	for _, entry := range a.entries {
		a.wg.Add(1)
		go a.pollLoop(pollCtx, entry)
	}
	a.logger.Info("telemetry polling started", zap.Int("sources", len(a.entries)))
	return true, nil
}

// Stop tears down the poll loops and waits for them to exit.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	cancel()
	a.wg.Wait()
	a.logger.Info("telemetry polling stopped")
}

// Running reports whether poll loops are active.
func (a *Aggregator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// SetEnabled persists the gate and starts or stops polling to match. The
// gate governs scheduling, not display: disabled means zero polls.
func (a *Aggregator) SetEnabled(ctx context.Context, enabled bool) error {
	if err := a.gate.SetEnabled(enabled); err != nil {
		return err
	}
	if enabled {
		_, err := a.Start(ctx)
		return err
	}
	a.Stop()
	return nil
}

// Refresh kicks one source into an immediate re-check. Non-blocking; a kick
// while a re-check is already pending is dropped.
func (a *Aggregator) Refresh(sourceID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	for _, entry := range a.entries {
		if entry.source.ID() != sourceID {
			continue
		}
		select {
		case entry.kick <- struct{}{}:
		default:
		}
		return
	}
}

// CheckOnce runs a single synchronous poll over every source regardless of
// the gate, for one-shot status commands.
func (a *Aggregator) CheckOnce(ctx context.Context) {
	a.mu.Lock()
	entries := make([]sourceEntry, len(a.entries))
	copy(entries, a.entries)
	a.mu.Unlock()
	for _, entry := range entries {
		a.checkSource(ctx, entry.source)
	}
}

func (a *Aggregator) pollLoop(ctx context.Context, entry sourceEntry) {
	defer a.wg.Done()

	a.checkSource(ctx, entry.source)

	ticker := time.NewTicker(entry.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-entry.kick:
		}
		a.checkSource(ctx, entry.source)
	}
}

func (a *Aggregator) checkSource(ctx context.Context, source Source) {
	id := source.ID()
	a.setSample(domain.HealthSample{SourceID: id, Status: domain.HealthChecking, Timestamp: a.nowFn()})

	started := time.Now()
	err := source.Check(ctx)
	elapsed := time.Since(started)

	if err != nil {
		if ctx.Err() != nil {
			// Shutdown, not a source failure; keep the last real sample out
			// of the error state.
			return
		}
		a.logger.Warn("telemetry poll failed", zap.String("source", id), zap.Error(err))
		a.metrics.ObservePoll(id, "error", elapsed)
		a.setSample(domain.HealthSample{
			SourceID:  id,
			Status:    domain.HealthError,
			Timestamp: a.nowFn(),
			Detail:    err.Error(),
		})
		return
	}

	a.metrics.ObservePoll(id, "ok", elapsed)
	a.setSample(domain.HealthSample{SourceID: id, Status: domain.HealthHealthy, Timestamp: a.nowFn()})
}

func (a *Aggregator) setSample(sample domain.HealthSample) {
	a.mu.Lock()
	a.samples[sample.SourceID] = sample
	a.mu.Unlock()
}

// Snapshot computes the composite status from the latest samples and the
// cached run outcomes.
func (a *Aggregator) Snapshot() domain.TelemetrySnapshot {
	now := a.nowFn()

	a.mu.Lock()
	samples := make([]domain.HealthSample, 0, len(a.samples))
	for _, sample := range a.samples {
		samples = append(samples, sample)
	}
	entries := make([]sourceEntry, len(a.entries))
	copy(entries, a.entries)
	a.mu.Unlock()

	sort.Slice(samples, func(i, j int) bool { return samples[i].SourceID < samples[j].SourceID })

	overall := domain.OverallHealthy
	anyError := false
	for _, sample := range samples {
		if sample.Status != domain.HealthHealthy {
			overall = domain.OverallDegraded
		}
		if sample.Status == domain.HealthError {
			anyError = true
		}
	}

	failures := 0
	for _, entry := range entries {
		provider, ok := entry.source.(OutcomeProvider)
		if !ok {
			continue
		}
		for _, outcome := range provider.Outcomes() {
			if outcome.RecentFailure(now, a.window) {
				failures++
			}
		}
	}

	a.metrics.SetRecentFailures(failures)
	a.metrics.SetDegraded(overall == domain.OverallDegraded)

	return domain.TelemetrySnapshot{
		Overall:        overall,
		Sources:        samples,
		RecentFailures: failures,
		ActionRequired: failures > 0 || anyError,
		TakenAt:        now,
	}
}
