package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentspine/spine/internal/llm"
	"github.com/agentspine/spine/internal/pipeline"
)

// Codergen drives one LLM generation round per box-shaped node, using
// the node's prompt (with dotted-key context substitution left to the
// caller's templating — this handler sends the prompt text as-is) as
// the user message. A node-scoped working directory under logsRoot
// receives prompt.md/response.md for operator inspection; the Tool and
// WaitHuman handlers write nothing under logsRoot.
type Codergen struct {
	Client *llm.Client
}

func (c Codergen) Handle(ctx context.Context, node *pipeline.Node, pctx *pipeline.Context, graph *pipeline.Graph, logsRoot string) (pipeline.Outcome, error) {
	stageDir := filepath.Join(logsRoot, node.ID)
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return pipeline.Outcome{}, fmt.Errorf("create stage dir: %w", err)
	}
	_ = os.WriteFile(filepath.Join(stageDir, "prompt.md"), []byte(node.Prompt), 0o644)

	result, err := c.Client.Generate(ctx, llm.GenerateOptions{
		Provider:        node.Provider,
		Model:           node.Model,
		Prompt:          node.Prompt,
		ReasoningEffort: llm.ReasoningEffort(node.Effort),
		MaxToolRounds:   0,
	})
	if err != nil {
		return pipeline.Outcome{}, err
	}

	text := result.Final.Text()
	_ = os.WriteFile(filepath.Join(stageDir, "response.md"), []byte(text), 0o644)

	return pipeline.Outcome{
		Status:         pipeline.StatusSuccess,
		ContextUpdates: map[string]interface{}{fmt.Sprintf("%s.response", node.ID): text},
	}, nil
}
