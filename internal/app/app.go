// Package app wires the console components together for the CLI.
package app

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"opsd/internal/domain"
	"opsd/internal/infra/config"
	"opsd/internal/infra/contract"
	"opsd/internal/infra/dispatch"
	"opsd/internal/infra/lifecycle"
	"opsd/internal/infra/lineage"
	"opsd/internal/infra/orchestrator"
	"opsd/internal/infra/store"
	"opsd/internal/infra/telemetry"
)

type App struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

// Console is the fully wired component set. CLI subcommands operate on it
// directly; Serve additionally runs the pollers and the observability
// server.
type Console struct {
	Config     domain.Config
	Store      *store.Store
	Resolver   *contract.Resolver
	Dispatcher *dispatch.Dispatcher
	Aggregator *telemetry.Aggregator
	Metrics    *telemetry.Metrics
	Registry   *prometheus.Registry

	logger *zap.Logger
}

type ServeOptions struct {
	ConfigPath string
}

// Build loads configuration and constructs every component without starting
// any background work.
func (a *App) Build(configPath string) (*Console, error) {
	cfg, err := config.NewLoader(a.logger).Load(configPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	orch := orchestrator.NewClient(cfg.OrchestratorURL, httpClient, a.logger)
	lin := lineage.NewClient(cfg.LineageURL, httpClient, a.logger)

	resolver, err := contract.NewResolver(cfg.ContractURL, httpClient, a.logger,
		contract.WithLoadHook(metrics.RecordContractLoad))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	dispatcher := dispatch.New(a.logger, dispatch.WithExecuteHook(metrics.RecordToolExecution))
	dispatcher.MustRegister(dispatch.DefaultTools(orch, lin)...)

	gate := telemetry.PrefGate{
		Prefs:   st,
		Key:     store.PrefTelemetryEnabled,
		Default: true,
	}
	aggregator := telemetry.NewAggregator(telemetry.AggregatorOptions{
		Window:  cfg.FailureWindow,
		Gate:    gate,
		Logger:  a.logger,
		Metrics: metrics,
	})
	aggregator.AddSource(telemetry.NewOrchestratorSource(orch, 0), cfg.Poll.Orchestrator)
	aggregator.AddSource(telemetry.NewLineageSource(lin), cfg.Poll.Lineage)
	if cfg.LifecycleStatusPath != "" {
		aggregator.AddSource(telemetry.NewLifecycleSource(cfg.LifecycleStatusPath), cfg.Poll.Lifecycle)
	}

	return &Console{
		Config:     cfg,
		Store:      st,
		Resolver:   resolver,
		Dispatcher: dispatcher,
		Aggregator: aggregator,
		Metrics:    metrics,
		Registry:   registry,
		logger:     a.logger,
	}, nil
}

func (c *Console) Close() error {
	return c.Store.Close()
}

// Approve records an approval decision and counts it.
func (c *Console) Approve(runID, operator, comment string) (domain.Approval, error) {
	approval, err := c.Store.Approve(runID, operator, comment)
	if err != nil {
		return domain.Approval{}, err
	}
	c.Metrics.RecordApprovalDecision(string(domain.AuditApprove))
	return approval, nil
}

// Reject records a rejection decision and counts it.
func (c *Console) Reject(runID, operator, reason, comment string) (domain.Approval, error) {
	approval, err := c.Store.Reject(runID, operator, reason, comment)
	if err != nil {
		return domain.Approval{}, err
	}
	c.Metrics.RecordApprovalDecision(string(domain.AuditReject))
	return approval, nil
}

// SetTelemetryEnabled flips the persisted polling gate.
func (c *Console) SetTelemetryEnabled(enabled bool) error {
	return c.Store.SetBool(store.PrefTelemetryEnabled, enabled)
}

// Serve runs the console until ctx is done: warms the tool contract, starts
// the telemetry pollers (when the persisted gate allows), watches the
// lifecycle document, and serves the observability endpoints.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	console, err := a.Build(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = console.Close() }()

	console.Resolver.Load(ctx)

	started, err := console.Aggregator.Start(ctx)
	if err != nil {
		return err
	}
	if started {
		defer console.Aggregator.Stop()
	}

	if console.Config.LifecycleStatusPath != "" {
		go func() {
			err := lifecycle.Watch(ctx, console.Config.LifecycleStatusPath, a.logger, func() {
				console.Aggregator.Refresh(telemetry.SourceLifecycle)
			})
			if err != nil && ctx.Err() == nil {
				a.logger.Warn("lifecycle watcher exited", zap.Error(err))
			}
		}()
	}

	obs := console.Config.Observability
	if !obs.EnableMetrics && !obs.EnableHealthz {
		<-ctx.Done()
		return nil
	}
	err = telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
		Addr:          obs.ListenAddress,
		EnableMetrics: obs.EnableMetrics,
		EnableHealthz: obs.EnableHealthz,
		Registry:      console.Registry,
		Snapshot:      console.Aggregator.Snapshot,
	}, a.logger)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// ValidateConfig loads and validates the config file without starting
// anything.
func (a *App) ValidateConfig(opts ServeOptions) error {
	cfg, err := config.NewLoader(a.logger).Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	a.logger.Info("config is valid",
		zap.String("orchestratorURL", cfg.OrchestratorURL),
		zap.String("lineageURL", cfg.LineageURL),
		zap.String("contractURL", cfg.ContractURL),
	)
	return nil
}
