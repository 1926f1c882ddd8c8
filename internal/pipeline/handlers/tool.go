package handlers

import (
	"context"
	"fmt"

	"github.com/agentspine/spine/internal/pipeline"
	"github.com/agentspine/spine/internal/tool"
)

// Tool invokes a registered tool for a parallelogram-shaped node. The
// tool name comes from the node's "tool" extension attribute; arguments
// come from its "args" extension attribute (a JSON object string), or
// default to {} when absent.
type Tool struct {
	Registry *tool.Registry
	Env      interface{}
}

func (t Tool) Handle(ctx context.Context, node *pipeline.Node, _ *pipeline.Context, _ *pipeline.Graph, _ string) (pipeline.Outcome, error) {
	name := node.Extra["tool"]
	if name == "" {
		return pipeline.Outcome{Status: pipeline.StatusFail, FailureReason: fmt.Sprintf("node %q has no tool extension attribute", node.ID)}, nil
	}
	args := node.Extra["args"]

	result := tool.Dispatch(ctx, t.Registry, t.Env, name, args)
	if result.IsError {
		return pipeline.Outcome{Status: pipeline.StatusFail, FailureReason: result.Output}, nil
	}
	return pipeline.Outcome{
		Status:         pipeline.StatusSuccess,
		ContextUpdates: map[string]interface{}{fmt.Sprintf("%s.output", node.ID): result.Output},
	}, nil
}
