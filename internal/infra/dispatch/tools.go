package dispatch

import (
	"context"
	"fmt"
	"strconv"

	"opsd/internal/domain"
)

// Registered tool names.
const (
	ToolListFlows    = "list_prefect_flows"
	ToolLineage      = "get_marquez_lineage"
	ToolOpenRun      = "open_run"
	ToolListFlowRuns = "list_flow_runs"
)

// OrchestratorAPI is the orchestrator surface the tools consume.
type OrchestratorAPI interface {
	ListFlows(ctx context.Context) ([]domain.Flow, error)
	ListFlowRuns(ctx context.Context, limit int) ([]domain.FlowRun, error)
}

// LineageAPI is the lineage surface the tools consume.
type LineageAPI interface {
	ListNamespaces(ctx context.Context) ([]domain.LineageNamespace, error)
	ListJobs(ctx context.Context, namespace string) ([]domain.LineageJob, error)
}

// DefaultTools builds the built-in tool set. Client failures surface as
// returned errors; the dispatcher folds them into the result envelope.
func DefaultTools(orch OrchestratorAPI, lin LineageAPI) []Tool {
	return []Tool{
		{
			Name:        ToolListFlows,
			Description: "List flow definitions known to the orchestrator",
			Run: func(ctx context.Context, _ domain.ToolArgs) (any, string, error) {
				flows, err := orch.ListFlows(ctx)
				if err != nil {
					return nil, "", err
				}
				return flows, fmt.Sprintf("found %d flows", len(flows)), nil
			},
		},
		{
			Name:        ToolLineage,
			Description: "List lineage jobs in a namespace, or all namespaces",
			Run: func(ctx context.Context, args domain.ToolArgs) (any, string, error) {
				namespace := args["namespace"]
				if namespace == "" {
					namespaces, err := lin.ListNamespaces(ctx)
					if err != nil {
						return nil, "", err
					}
					return namespaces, fmt.Sprintf("found %d lineage namespaces", len(namespaces)), nil
				}
				jobs, err := lin.ListJobs(ctx, namespace)
				if err != nil {
					return nil, "", err
				}
				return jobs, fmt.Sprintf("found %d jobs in namespace %s", len(jobs), namespace), nil
			},
		},
		{
			Name:        ToolOpenRun,
			Description: "Navigate to a run detail view",
			Run: func(_ context.Context, args domain.ToolArgs) (any, string, error) {
				runID := args["runId"]
				if runID == "" {
					return nil, "", domain.NewError(domain.CodeInvalidArgument, "tool.open_run", "run id is required", nil)
				}
				intent := domain.NavigationIntent{Target: "/runs/" + runID}
				return intent, fmt.Sprintf("opening run %s", runID), nil
			},
		},
		{
			Name:        ToolListFlowRuns,
			Description: "List recent flow runs from the orchestrator",
			Run: func(ctx context.Context, args domain.ToolArgs) (any, string, error) {
				limit := 0
				if raw := args["limit"]; raw != "" {
					parsed, err := strconv.Atoi(raw)
					if err == nil {
						limit = parsed
					}
				}
				runs, err := orch.ListFlowRuns(ctx, limit)
				if err != nil {
					return nil, "", err
				}
				return runs, fmt.Sprintf("found %d recent runs", len(runs)), nil
			},
		},
	}
}
