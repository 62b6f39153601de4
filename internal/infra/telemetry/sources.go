package telemetry

import (
	"context"
	"fmt"
	"sync"

	"opsd/internal/domain"
	"opsd/internal/infra/lifecycle"
)

// Source IDs.
const (
	SourceOrchestrator = "orchestrator"
	SourceLineage      = "lineage"
	SourceLifecycle    = "lifecycle"
)

// Source is one independently polled health input.
type Source interface {
	ID() string
	Check(ctx context.Context) error
}

// OutcomeProvider is implemented by sources that also yield run outcomes for
// the rolling failure window.
type OutcomeProvider interface {
	Outcomes() []domain.RunOutcome
}

// RunLister is the orchestrator surface the run source polls.
type RunLister interface {
	ListFlowRuns(ctx context.Context, limit int) ([]domain.FlowRun, error)
}

// NamespaceLister is the lineage surface the lineage source polls.
type NamespaceLister interface {
	ListNamespaces(ctx context.Context) ([]domain.LineageNamespace, error)
}

// OrchestratorSource polls recent flow runs. A successful poll refreshes the
// cached outcomes the aggregator counts failures from.
type OrchestratorSource struct {
	client RunLister
	limit  int

	mu       sync.Mutex
	outcomes []domain.RunOutcome
}

func NewOrchestratorSource(client RunLister, limit int) *OrchestratorSource {
	if limit <= 0 {
		limit = domain.DefaultFlowRunListLimit
	}
	return &OrchestratorSource{client: client, limit: limit}
}

func (s *OrchestratorSource) ID() string { return SourceOrchestrator }

func (s *OrchestratorSource) Check(ctx context.Context) error {
	runs, err := s.client.ListFlowRuns(ctx, s.limit)
	if err != nil {
		return err
	}
	outcomes := make([]domain.RunOutcome, 0, len(runs))
	for _, run := range runs {
		outcomes = append(outcomes, run.Outcome())
	}
	s.mu.Lock()
	s.outcomes = outcomes
	s.mu.Unlock()
	return nil
}

func (s *OrchestratorSource) Outcomes() []domain.RunOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RunOutcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// LineageSource polls the lineage service's namespace listing.
type LineageSource struct {
	client NamespaceLister
}

func NewLineageSource(client NamespaceLister) *LineageSource {
	return &LineageSource{client: client}
}

func (s *LineageSource) ID() string { return SourceLineage }

func (s *LineageSource) Check(ctx context.Context) error {
	_, err := s.client.ListNamespaces(ctx)
	return err
}

// LifecycleSource reads the external verification document. The document
// existing but reporting failure is an unhealthy source, same as a missing
// or malformed document.
type LifecycleSource struct {
	path string
}

func NewLifecycleSource(path string) *LifecycleSource {
	return &LifecycleSource{path: path}
}

func (s *LifecycleSource) ID() string { return SourceLifecycle }

func (s *LifecycleSource) Check(context.Context) error {
	status, err := lifecycle.Read(s.path)
	if err != nil {
		return err
	}
	if !status.Success {
		if status.Notes != "" {
			return fmt.Errorf("lifecycle verification failed: %s", status.Notes)
		}
		return fmt.Errorf("lifecycle verification failed")
	}
	return nil
}
