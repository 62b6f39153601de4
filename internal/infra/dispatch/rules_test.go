package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"opsd/internal/domain"
)

func TestInterpretExtractsArguments(t *testing.T) {
	d := New(nil)

	cases := []struct {
		text string
		tool string
		args domain.ToolArgs
	}{
		{"show lineage for namespace prod.pipelines", ToolLineage, domain.ToolArgs{"namespace": "prod.pipelines"}},
		{"what is the marquez lineage", ToolLineage, nil},
		{"open run 7f3a9c2e please", ToolOpenRun, domain.ToolArgs{"runId": "7f3a9c2e"}},
		{"list the last 5 runs", ToolListFlowRuns, domain.ToolArgs{"limit": "5"}},
		{"any recent failures?", ToolListFlowRuns, nil},
		{"list all flows", ToolListFlows, nil},
		{"which pipelines exist", ToolListFlows, nil},
	}

	for _, tc := range cases {
		invocation := d.Interpret(tc.text)
		require.NotNil(t, invocation, "text %q", tc.text)
		require.Equal(t, tc.tool, invocation.Tool, "text %q", tc.text)
		require.Equal(t, tc.args, invocation.Args, "text %q", tc.text)
	}
}

func TestInterpretUnmatchedReturnsNil(t *testing.T) {
	d := New(nil)
	require.Nil(t, d.Interpret("hello there"))
	require.Nil(t, d.Interpret(""))
}

func TestRulePrecedenceIsOrdered(t *testing.T) {
	d := New(nil)

	// "open run" outranks the run listing even though both match "run".
	invocation := d.Interpret("open run 12345678 from the runs list")
	require.NotNil(t, invocation)
	require.Equal(t, ToolOpenRun, invocation.Tool)

	// Lineage outranks the run listing when both keywords appear.
	invocation = d.Interpret("lineage for recent runs in namespace prod")
	require.NotNil(t, invocation)
	require.Equal(t, ToolLineage, invocation.Tool)

	// The run listing outranks the flow listing.
	invocation = d.Interpret("list runs for my flows")
	require.NotNil(t, invocation)
	require.Equal(t, ToolListFlowRuns, invocation.Tool)
}

func TestDispatchProducesToolCall(t *testing.T) {
	orch := &fakeOrchestrator{runs: []domain.FlowRun{{ID: "r1"}}}
	d := newDispatcher(t, orch, &fakeLineage{})

	call, ok := d.Dispatch(context.Background(), "show me the last 3 runs")
	require.True(t, ok)
	require.NotNil(t, call)
	require.NotEmpty(t, call.ID)
	require.Equal(t, ToolListFlowRuns, call.Tool)
	require.False(t, call.Timestamp.IsZero())
	require.True(t, call.Result.Success)
	require.Equal(t, 3, orch.gotLimit)
}

func TestDispatchUnmatchedText(t *testing.T) {
	d := newDispatcher(t, &fakeOrchestrator{}, &fakeLineage{})

	call, ok := d.Dispatch(context.Background(), "tell me a joke")
	require.False(t, ok)
	require.Nil(t, call)
}
