// Package handlers implements the pipeline engine's per-shape node
// handlers: start/exit pass-through, conditional branching, LLM-backed
// codergen, tool invocation, human-in-the-loop wait, and parallel
// fan-out/fan-in.
package handlers

import (
	"context"

	"github.com/agentspine/spine/internal/pipeline"
)

// Start is a pass-through handler: the start node carries no work of
// its own, it only seeds the run.
type Start struct{}

func (Start) Handle(_ context.Context, _ *pipeline.Node, _ *pipeline.Context, _ *pipeline.Graph, _ string) (pipeline.Outcome, error) {
	return pipeline.Outcome{Status: pipeline.StatusSuccess}, nil
}
