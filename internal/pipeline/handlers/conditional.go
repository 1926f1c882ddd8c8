package handlers

import (
	"context"

	"github.com/agentspine/spine/internal/pipeline"
)

// Conditional performs no work of its own: a diamond-shaped node's
// branching is entirely expressed by its outgoing edges' conditions,
// evaluated by the engine's edge selector. The handler only needs to
// succeed so the engine proceeds to edge selection.
type Conditional struct{}

func (Conditional) Handle(_ context.Context, _ *pipeline.Node, _ *pipeline.Context, _ *pipeline.Graph, _ string) (pipeline.Outcome, error) {
	return pipeline.Outcome{Status: pipeline.StatusSuccess}, nil
}
