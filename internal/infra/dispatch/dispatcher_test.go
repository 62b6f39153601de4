package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"opsd/internal/domain"
)

type fakeOrchestrator struct {
	flows    []domain.Flow
	runs     []domain.FlowRun
	err      error
	gotLimit int
}

func (f *fakeOrchestrator) ListFlows(context.Context) ([]domain.Flow, error) {
	return f.flows, f.err
}

func (f *fakeOrchestrator) ListFlowRuns(_ context.Context, limit int) ([]domain.FlowRun, error) {
	f.gotLimit = limit
	return f.runs, f.err
}

type fakeLineage struct {
	namespaces []domain.LineageNamespace
	jobs       []domain.LineageJob
	err        error
	gotNS      string
}

func (f *fakeLineage) ListNamespaces(context.Context) ([]domain.LineageNamespace, error) {
	return f.namespaces, f.err
}

func (f *fakeLineage) ListJobs(_ context.Context, ns string) ([]domain.LineageJob, error) {
	f.gotNS = ns
	return f.jobs, f.err
}

func newDispatcher(t *testing.T, orch OrchestratorAPI, lin LineageAPI, opts ...Option) *Dispatcher {
	t.Helper()
	d := New(nil, opts...)
	d.MustRegister(DefaultTools(orch, lin)...)
	return d
}

func TestExecuteUnknownTool(t *testing.T) {
	d := newDispatcher(t, &fakeOrchestrator{}, &fakeLineage{})

	result := d.Execute(context.Background(), "__unknown__", nil)
	require.False(t, result.Success)
	require.Contains(t, result.Error, "unknown tool")
	require.Equal(t, "tool not found", result.Message)
}

func TestExecuteWrapsClientError(t *testing.T) {
	orch := &fakeOrchestrator{err: errors.New("connection refused")}
	d := newDispatcher(t, orch, &fakeLineage{})

	result := d.Execute(context.Background(), ToolListFlows, nil)
	require.False(t, result.Success)
	require.Contains(t, result.Error, "connection refused")
	require.NotEmpty(t, result.Message)
}

func TestExecuteRecoversPanic(t *testing.T) {
	d := New(nil)
	d.MustRegister(Tool{
		Name: "explode",
		Run: func(context.Context, domain.ToolArgs) (any, string, error) {
			panic("kaboom")
		},
	})

	result := d.Execute(context.Background(), "explode", nil)
	require.False(t, result.Success)
	require.Contains(t, result.Error, "kaboom")
}

func TestExecuteAllRegisteredToolsReturnEnvelope(t *testing.T) {
	orch := &fakeOrchestrator{
		flows: []domain.Flow{{ID: "f1", Name: "refine"}},
		runs:  []domain.FlowRun{{ID: "r1"}},
	}
	lin := &fakeLineage{
		namespaces: []domain.LineageNamespace{{Name: "default"}},
		jobs:       []domain.LineageJob{{Name: "job", Namespace: "prod"}},
	}
	d := newDispatcher(t, orch, lin)

	argSets := []domain.ToolArgs{nil, {}, {"namespace": "prod", "runId": "r1", "limit": "5"}}
	for _, name := range []string{ToolListFlows, ToolLineage, ToolOpenRun, ToolListFlowRuns} {
		for _, args := range argSets {
			result := d.Execute(context.Background(), name, args)
			if result.Success {
				require.NotEmpty(t, result.Message, "tool %s", name)
			} else {
				require.NotEmpty(t, result.Error, "tool %s", name)
			}
		}
	}
}

func TestOpenRunIsPure(t *testing.T) {
	orch := &fakeOrchestrator{err: errors.New("must not be called")}
	lin := &fakeLineage{err: errors.New("must not be called")}
	d := newDispatcher(t, orch, lin)

	result := d.Execute(context.Background(), ToolOpenRun, domain.ToolArgs{"runId": "abc-123"})
	require.True(t, result.Success)
	intent, ok := result.Data.(domain.NavigationIntent)
	require.True(t, ok)
	require.Equal(t, "/runs/abc-123", intent.Target)
}

func TestOpenRunRequiresRunID(t *testing.T) {
	d := newDispatcher(t, &fakeOrchestrator{}, &fakeLineage{})

	result := d.Execute(context.Background(), ToolOpenRun, nil)
	require.False(t, result.Success)
	require.Contains(t, result.Error, "run id is required")
}

func TestLineageFallsBackToNamespaces(t *testing.T) {
	lin := &fakeLineage{namespaces: []domain.LineageNamespace{{Name: "default"}}}
	d := newDispatcher(t, &fakeOrchestrator{}, lin)

	result := d.Execute(context.Background(), ToolLineage, nil)
	require.True(t, result.Success)
	require.Contains(t, result.Message, "namespaces")

	result = d.Execute(context.Background(), ToolLineage, domain.ToolArgs{"namespace": "prod"})
	require.True(t, result.Success)
	require.Equal(t, "prod", lin.gotNS)
}

func TestExecuteHookOutcomes(t *testing.T) {
	var outcomes []string
	hook := func(tool, status string) { outcomes = append(outcomes, tool+":"+status) }
	orch := &fakeOrchestrator{}
	d := newDispatcher(t, orch, &fakeLineage{}, WithExecuteHook(hook))

	d.Execute(context.Background(), ToolListFlows, nil)
	d.Execute(context.Background(), "missing", nil)
	orch.err = errors.New("down")
	d.Execute(context.Background(), ToolListFlows, nil)

	require.Equal(t, []string{
		ToolListFlows + ":ok",
		"missing:not_found",
		ToolListFlows + ":error",
	}, outcomes)
}
