package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentspine/spine/internal/pipeline"
	"github.com/agentspine/spine/internal/tool"
)

func TestToolHandlerDispatchesRegisteredTool(t *testing.T) {
	registry := tool.NewRegistry()
	registry.Register(tool.Registration{
		Definition: tool.Definition{Name: "greet"},
		Executor: tool.ExecutorFunc(func(_ context.Context, args map[string]interface{}, _ interface{}) (interface{}, error) {
			return "hello " + args["name"].(string), nil
		}),
	})

	h := Tool{Registry: registry}
	node := &pipeline.Node{ID: "n1", Extra: map[string]string{"tool": "greet", "args": `{"name":"world"}`}}

	outcome, err := h.Handle(context.Background(), node, pipeline.NewContext(), pipeline.NewGraph("g"), "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusSuccess, outcome.Status)
	assert.Equal(t, "hello world", outcome.ContextUpdates["n1.output"])
}

func TestToolHandlerUnknownToolFails(t *testing.T) {
	h := Tool{Registry: tool.NewRegistry()}
	node := &pipeline.Node{ID: "n1", Extra: map[string]string{"tool": "missing"}}

	outcome, err := h.Handle(context.Background(), node, pipeline.NewContext(), pipeline.NewGraph("g"), "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusFail, outcome.Status)
}

func TestWaitHumanResolvesExactValueMatch(t *testing.T) {
	g := pipeline.NewGraph("g")
	g.AddNode(&pipeline.Node{ID: "n1"})
	g.AddNode(&pipeline.Node{ID: "yes"})
	g.AddNode(&pipeline.Node{ID: "no"})
	g.AddEdge(&pipeline.Edge{From: "n1", To: "yes", Label: "[Y] Yes"})
	g.AddEdge(&pipeline.Edge{From: "n1", To: "no", Label: "[N] No"})

	h := WaitHuman{Ask: func(_ context.Context, _ *pipeline.Node, choices []Choice) (string, error) {
		return "yes", nil
	}}

	outcome, err := h.Handle(context.Background(), g.Nodes["n1"], pipeline.NewContext(), g, "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusSuccess, outcome.Status)
	assert.Equal(t, []string{"yes"}, outcome.SuggestedNextIDs)
}

func TestWaitHumanTimeoutUsesDefaultChoice(t *testing.T) {
	g := pipeline.NewGraph("g")
	g.AddNode(&pipeline.Node{ID: "n1"})
	g.AddNode(&pipeline.Node{ID: "retry"})
	g.AddEdge(&pipeline.Edge{From: "n1", To: "retry", Label: "Retry"})

	h := WaitHuman{
		Ask: func(_ context.Context, _ *pipeline.Node, _ []Choice) (string, error) {
			return AnswerTimeout, nil
		},
		DefaultChoice: "retry",
	}

	outcome, err := h.Handle(context.Background(), g.Nodes["n1"], pipeline.NewContext(), g, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"retry"}, outcome.SuggestedNextIDs)
}

func TestWaitHumanTimeoutWithNoDefaultRetries(t *testing.T) {
	g := pipeline.NewGraph("g")
	g.AddNode(&pipeline.Node{ID: "n1"})
	g.AddEdge(&pipeline.Edge{From: "n1", To: "x"})

	h := WaitHuman{Ask: func(_ context.Context, _ *pipeline.Node, _ []Choice) (string, error) {
		return AnswerTimeout, nil
	}}

	outcome, err := h.Handle(context.Background(), g.Nodes["n1"], pipeline.NewContext(), g, "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusRetry, outcome.Status)
}

func TestWaitHumanSkippedFails(t *testing.T) {
	g := pipeline.NewGraph("g")
	g.AddNode(&pipeline.Node{ID: "n1"})
	g.AddEdge(&pipeline.Edge{From: "n1", To: "x"})

	h := WaitHuman{Ask: func(_ context.Context, _ *pipeline.Node, _ []Choice) (string, error) {
		return AnswerSkipped, nil
	}}

	outcome, err := h.Handle(context.Background(), g.Nodes["n1"], pipeline.NewContext(), g, "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusFail, outcome.Status)
}

func TestAcceleratorKeyPatterns(t *testing.T) {
	assert.Equal(t, "k", AcceleratorKey("[K] Retry"))
	assert.Equal(t, "k", AcceleratorKey("K) Retry"))
	assert.Equal(t, "k", AcceleratorKey("K - Retry"))
	assert.Equal(t, "r", AcceleratorKey("Retry"))
}

func TestParallelJoinPolicies(t *testing.T) {
	g := pipeline.NewGraph("g")
	g.AddNode(&pipeline.Node{ID: "n1"})
	g.AddNode(&pipeline.Node{ID: "b1", Shape: pipeline.ShapeCodergen})
	g.AddNode(&pipeline.Node{ID: "b2", Shape: pipeline.ShapeCodergen})
	g.AddEdge(&pipeline.Edge{From: "n1", To: "b1"})
	g.AddEdge(&pipeline.Edge{From: "n1", To: "b2"})

	p := Parallel{Join: JoinWaitAll} // Engine nil => simulate, all SUCCESS
	outcome, err := p.Handle(context.Background(), g.Nodes["n1"], pipeline.NewContext(), g, "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusSuccess, outcome.Status)
}

func TestFanInPicksBestBranchByRankThenScore(t *testing.T) {
	pctx := pipeline.NewContext()
	pctx.Set("parallel.results", `[
		{"branch":"b1","outcome":"PARTIAL_SUCCESS","score":5},
		{"branch":"b2","outcome":"SUCCESS","score":1},
		{"branch":"b3","outcome":"SUCCESS","score":9}
	]`)

	h := FanIn{}
	outcome, err := h.Handle(context.Background(), &pipeline.Node{ID: "fanin"}, pctx, pipeline.NewGraph("g"), "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusSuccess, outcome.Status)
	assert.Equal(t, "b3", outcome.ContextUpdates["parallel.fan_in.best_id"])
}

func TestFanInAllFailedFails(t *testing.T) {
	pctx := pipeline.NewContext()
	pctx.Set("parallel.results", `[{"branch":"b1","outcome":"FAIL"}]`)

	h := FanIn{}
	outcome, err := h.Handle(context.Background(), &pipeline.Node{ID: "fanin"}, pctx, pipeline.NewGraph("g"), "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusFail, outcome.Status)
}

func TestFanInMalformedJSONFails(t *testing.T) {
	pctx := pipeline.NewContext()
	pctx.Set("parallel.results", `not json`)

	h := FanIn{}
	outcome, err := h.Handle(context.Background(), &pipeline.Node{ID: "fanin"}, pctx, pipeline.NewGraph("g"), "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusFail, outcome.Status)
}
