package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/agentspine/spine/internal/errors"
)

func simpleGraph() *Graph {
	g := NewGraph("simple")
	g.AddNode(&Node{ID: "start", Shape: ShapeStart})
	g.AddNode(&Node{ID: "work", Shape: ShapeCodergen})
	g.AddNode(&Node{ID: "exit", Shape: ShapeExit})
	g.AddEdge(&Edge{From: "start", To: "work"})
	g.AddEdge(&Edge{From: "work", To: "exit"})
	return g
}

func newTestEngine(workHandler Handler) *Engine {
	e := NewEngine(nil)
	e.Register("start", HandlerFunc(func(_ context.Context, _ *Node, _ *Context, _ *Graph, _ string) (Outcome, error) {
		return Outcome{Status: StatusSuccess}, nil
	}))
	e.Register("exit", HandlerFunc(func(_ context.Context, _ *Node, _ *Context, _ *Graph, _ string) (Outcome, error) {
		return Outcome{Status: StatusSuccess}, nil
	}))
	e.Register("codergen", workHandler)
	return e
}

func TestEngineRunsToSuccessfulCompletion(t *testing.T) {
	g := simpleGraph()
	e := newTestEngine(HandlerFunc(func(_ context.Context, _ *Node, _ *Context, _ *Graph, _ string) (Outcome, error) {
		return Outcome{Status: StatusSuccess}, nil
	}))

	result, err := e.Execute(context.Background(), g, RunOptions{LogsRoot: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, []string{"start", "work"}, result.CompletedNodes)
}

func TestEngineGoalGateRetryRoutesBack(t *testing.T) {
	g := NewGraph("goal-gate")
	g.AddNode(&Node{ID: "start", Shape: ShapeStart})
	g.AddNode(&Node{ID: "work", Shape: ShapeCodergen, GoalGate: true, RetryTarget: "work"})
	g.AddNode(&Node{ID: "exit", Shape: ShapeExit})
	g.AddEdge(&Edge{From: "start", To: "work"})
	g.AddEdge(&Edge{From: "work", To: "exit"})

	attempts := 0
	e := newTestEngine(HandlerFunc(func(_ context.Context, _ *Node, _ *Context, _ *Graph, _ string) (Outcome, error) {
		attempts++
		if attempts < 2 {
			return Outcome{Status: StatusFail}, nil
		}
		return Outcome{Status: StatusSuccess}, nil
	}))

	result, err := e.Execute(context.Background(), g, RunOptions{LogsRoot: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 2, attempts)
}

func TestEngineGoalGateUnsatisfiedWithNoRetryTargetFails(t *testing.T) {
	g := NewGraph("goal-gate-no-target")
	g.AddNode(&Node{ID: "start", Shape: ShapeStart})
	g.AddNode(&Node{ID: "work", Shape: ShapeCodergen, GoalGate: true})
	g.AddNode(&Node{ID: "exit", Shape: ShapeExit})
	g.AddEdge(&Edge{From: "start", To: "work"})
	g.AddEdge(&Edge{From: "work", To: "exit"})

	e := newTestEngine(HandlerFunc(func(_ context.Context, _ *Node, _ *Context, _ *Graph, _ string) (Outcome, error) {
		return Outcome{Status: StatusFail}, nil
	}))

	_, err := e.Execute(context.Background(), g, RunOptions{LogsRoot: t.TempDir()}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goal gate unsatisfied")
	assert.True(t, appErrors.IsPipelineFatal(err))
}

func TestEngineNoOutgoingFailEdgeRaises(t *testing.T) {
	g := NewGraph("dead-end")
	g.AddNode(&Node{ID: "start", Shape: ShapeStart})
	g.AddNode(&Node{ID: "work", Shape: ShapeCodergen})
	g.AddEdge(&Edge{From: "start", To: "work"})

	e := newTestEngine(HandlerFunc(func(_ context.Context, _ *Node, _ *Context, _ *Graph, _ string) (Outcome, error) {
		return Outcome{Status: StatusFail}, nil
	}))

	_, err := e.Execute(context.Background(), g, RunOptions{LogsRoot: t.TempDir()}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no outgoing fail edge")
	assert.True(t, appErrors.IsPipelineFatal(err))
}

func TestEngineCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	g := simpleGraph()
	e := newTestEngine(HandlerFunc(func(_ context.Context, _ *Node, _ *Context, _ *Graph, _ string) (Outcome, error) {
		return Outcome{Status: StatusSuccess, ContextUpdates: map[string]interface{}{"work.done": true}}, nil
	}))

	_, err := e.Execute(context.Background(), g, RunOptions{LogsRoot: dir}, nil)
	require.NoError(t, err)

	cp, ok, err := LoadCheckpoint(dir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "work", cp.CurrentNode)
	assert.Contains(t, cp.CompletedNodes, "work")
	assert.Equal(t, true, cp.ContextValues["work.done"])
}

func TestEngineResumeFromCheckpointWhenAlreadyComplete(t *testing.T) {
	dir := t.TempDir()
	g := simpleGraph()
	e := newTestEngine(HandlerFunc(func(_ context.Context, _ *Node, _ *Context, _ *Graph, _ string) (Outcome, error) {
		return Outcome{Status: StatusSuccess}, nil
	}))

	_, err := e.Execute(context.Background(), g, RunOptions{LogsRoot: dir}, nil)
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), g, RunOptions{LogsRoot: dir, ResumeFromCheckpoint: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
}

func TestEngineSkippedNodeNotCheckpointedOrCompleted(t *testing.T) {
	g := NewGraph("skip")
	g.AddNode(&Node{ID: "start", Shape: ShapeStart})
	g.AddNode(&Node{ID: "work", Shape: ShapeCodergen})
	g.AddNode(&Node{ID: "exit", Shape: ShapeExit})
	g.AddEdge(&Edge{From: "start", To: "work"})
	g.AddEdge(&Edge{From: "work", To: "exit"})

	e := newTestEngine(HandlerFunc(func(_ context.Context, _ *Node, _ *Context, _ *Graph, _ string) (Outcome, error) {
		return Outcome{Status: StatusSkipped}, nil
	}))

	dir := t.TempDir()
	result, err := e.Execute(context.Background(), g, RunOptions{LogsRoot: dir}, nil)
	require.NoError(t, err)
	assert.NotContains(t, result.CompletedNodes, "work")

	// the last checkpoint is the start node's; the skipped node wrote none.
	cp, ok, err := LoadCheckpoint(dir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "start", cp.CurrentNode)
}
