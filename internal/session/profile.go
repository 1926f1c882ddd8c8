package session

import (
	"encoding/json"

	"github.com/agentspine/spine/internal/llm"
	"github.com/agentspine/spine/internal/tool"
)

// Profile is the provider-facing configuration a Session is constructed
// with: model/provider selection, the registered tool surface, and the
// limits that bound a submit's round loop.
type Profile struct {
	Provider     string
	Model        string
	SystemPrompt string

	Tools *tool.Registry

	ContextWindowSize         int
	SupportsParallelToolCalls bool
	ProviderOptions           map[string]json.RawMessage

	MaxToolRoundsPerInput int
	MaxTurns              int
	MaxSubagentDepth      int

	// ToolOutputLimits maps tool name to a model-visible output byte
	// limit; absent names fall back to defaultToolOutputLimit.
	ToolOutputLimits map[string]int

	ReasoningEffort llm.ReasoningEffort

	// ProjectDocsRoot is the directory scanned for instruction files.
	// Empty disables project-doc injection.
	ProjectDocsRoot string
}

func (p *Profile) outputLimitFor(name string) int {
	if p.ToolOutputLimits != nil {
		if v, ok := p.ToolOutputLimits[name]; ok {
			return v
		}
	}
	return defaultToolOutputLimit
}

func (p *Profile) toolDefinitions() []llm.ToolDefinition {
	if p.Tools == nil {
		return nil
	}
	defs := p.Tools.Definitions()
	out := make([]llm.ToolDefinition, len(defs))
	for i, d := range defs {
		out[i] = llm.ToolDefinition{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
	}
	return out
}
