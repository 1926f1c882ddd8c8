package handlers

import (
	"context"

	"github.com/agentspine/spine/internal/pipeline"
)

// Exit is a pass-through handler for a graph's terminal nodes; the
// engine's own terminal-node branch does the goal-gate and retry-target
// work, so reaching this handler at all only happens if a terminal node
// is dispatched before that check (never, in the current engine) —
// kept for symmetry with Start and as the registration default.
type Exit struct{}

func (Exit) Handle(_ context.Context, _ *pipeline.Node, _ *pipeline.Context, _ *pipeline.Graph, _ string) (pipeline.Outcome, error) {
	return pipeline.Outcome{Status: pipeline.StatusSuccess}, nil
}
