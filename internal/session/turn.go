// Package session implements the agent session loop: turn history, the
// steering/follow-up queues, loop detection, context-window accounting,
// the assistant+tool round driver, and the subagent supervisor.
package session

import (
	"time"

	"github.com/agentspine/spine/internal/llm"
)

type TurnKind string

const (
	TurnUser        TurnKind = "user"
	TurnAssistant   TurnKind = "assistant"
	TurnToolResults TurnKind = "tool_results"
	TurnSteering    TurnKind = "steering"
	TurnSystem      TurnKind = "system"
)

// ToolResult is one entry in a tool_results turn.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// Turn is the tagged union making up session history. Only the fields
// relevant to Kind are populated.
type Turn struct {
	Kind      TurnKind
	Timestamp time.Time

	// user / steering / system
	Content string

	// assistant
	ToolCalls    []llm.ToolCall
	Reasoning    string
	HasReasoning bool
	Usage        llm.Usage
	ResponseID   string

	// tool_results
	Results []ToolResult
}

func NewUserTurn(content string, ts time.Time) Turn {
	return Turn{Kind: TurnUser, Content: content, Timestamp: ts}
}

func NewSteeringTurn(content string, ts time.Time) Turn {
	return Turn{Kind: TurnSteering, Content: content, Timestamp: ts}
}

func NewSystemTurn(content string, ts time.Time) Turn {
	return Turn{Kind: TurnSystem, Content: content, Timestamp: ts}
}

func NewAssistantTurn(resp llm.Response, ts time.Time) Turn {
	reasoning, hasReasoning := resp.Reasoning()
	return Turn{
		Kind:         TurnAssistant,
		Content:      resp.Text(),
		ToolCalls:    resp.ToolCalls(),
		Reasoning:    reasoning,
		HasReasoning: hasReasoning,
		Usage:        resp.Usage,
		ResponseID:   resp.ID,
		Timestamp:    ts,
	}
}

func NewToolResultsTurn(results []ToolResult, ts time.Time) Turn {
	return Turn{Kind: TurnToolResults, Results: results, Timestamp: ts}
}

// History is the append-only conversation log for one session.
type History struct {
	turns []Turn
}

func (h *History) Append(t Turn) {
	h.turns = append(h.turns, t)
}

func (h *History) Turns() []Turn {
	return append([]Turn(nil), h.turns...)
}

func (h *History) Len() int {
	return len(h.turns)
}

// UserAssistantTurnCount counts turns that contribute toward max_turns:
// only user and assistant turns.
func (h *History) UserAssistantTurnCount() int {
	n := 0
	for _, t := range h.turns {
		if t.Kind == TurnUser || t.Kind == TurnAssistant {
			n++
		}
	}
	return n
}

// ToMessages converts history into the provider-neutral message list per
// the documented conversion rules. Converting twice yields an identical
// message list (the conversion has no hidden state).
func (h *History) ToMessages() []llm.Message {
	var out []llm.Message
	for _, t := range h.turns {
		switch t.Kind {
		case TurnUser:
			out = append(out, llm.TextMessage(llm.RoleUser, t.Content))
		case TurnSteering:
			// Steering is indistinguishable from a user message to the model.
			out = append(out, llm.TextMessage(llm.RoleUser, t.Content))
		case TurnSystem:
			out = append(out, llm.TextMessage(llm.RoleSystem, t.Content))
		case TurnAssistant:
			parts := []llm.ContentPart{}
			if t.Content != "" {
				parts = append(parts, llm.ContentPart{Type: llm.ContentText, Text: t.Content})
			}
			for _, tc := range t.ToolCalls {
				parts = append(parts, llm.ContentPart{
					Type: llm.ContentToolCall, ToolCallID: tc.ID, ToolName: tc.Name, ToolArgsRaw: tc.RawArgs,
				})
			}
			out = append(out, llm.Message{Role: llm.RoleAssistant, Parts: parts})
		case TurnToolResults:
			for _, r := range t.Results {
				out = append(out, llm.Message{
					Role:       llm.RoleTool,
					ToolCallID: r.ToolCallID,
					Parts: []llm.ContentPart{{
						Type: llm.ContentToolResult, ToolCallID: r.ToolCallID,
						ToolResultContent: r.Content, IsError: r.IsError,
					}},
				})
			}
		}
	}
	return out
}
