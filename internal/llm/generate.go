package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/safego"
)

// GenerateTool is a single tool exposed to generate()'s internal loop.
// Executor returning ok=false marks the result as an error payload; the
// string result is whatever text is appended as the tool-result content.
type GenerateTool struct {
	Definition ToolDefinition
	Executor   func(ctx context.Context, args map[string]interface{}) (result string, ok bool)
}

// GenerateOptions configures generate()'s self-contained tool-calling
// loop. This loop is independent of Session: it has no turn history,
// loop detector, or subagents — it is a lightweight convenience layer
// placed directly on top of Client.
type GenerateOptions struct {
	System          string
	Prompt          string
	Messages        []Message
	Model           string
	Provider        string
	Tools           []GenerateTool
	MaxToolRounds   int
	StopWhen        func(Response) bool
	AbortSignal     <-chan struct{}
	Timeout         time.Duration
	ReasoningEffort ReasoningEffort
}

type StepResult struct {
	Response    Response
	ToolResults []ContentPart // tool_result parts appended this round
}

type GenerateResult struct {
	Final Response
	Steps []StepResult
	Usage Usage
}

func buildInitialMessages(opts GenerateOptions) []Message {
	var msgs []Message
	if opts.System != "" {
		msgs = append(msgs, TextMessage(RoleSystem, opts.System))
	}
	if len(opts.Messages) > 0 {
		msgs = append(msgs, opts.Messages...)
	} else if opts.Prompt != "" {
		msgs = append(msgs, TextMessage(RoleUser, opts.Prompt))
	}
	return msgs
}

func toolDefs(tools []GenerateTool) []ToolDefinition {
	defs := make([]ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = t.Definition
	}
	return defs
}

func findTool(tools []GenerateTool, name string) (GenerateTool, bool) {
	for _, t := range tools {
		if t.Definition.Name == name {
			return t, true
		}
	}
	return GenerateTool{}, false
}

// Generate runs complete() possibly followed by concurrent tool
// execution rounds, looping up to MaxToolRounds while the response's
// finish reason is tool_calls, accumulating usage, honouring an abort
// signal and an overall timeout modeled as an abort.
func (c *Client) Generate(ctx context.Context, opts GenerateOptions) (GenerateResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if opts.AbortSignal != nil {
		inner, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-opts.AbortSignal:
				cancel()
			case <-inner.Done():
			}
		}()
		ctx = inner
	}

	messages := buildInitialMessages(opts)
	result := GenerateResult{}
	maxRounds := opts.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = 1
	}

	for round := 0; round < maxRounds+1; round++ {
		select {
		case <-ctx.Done():
			return result, NewAbortError(opts.Provider, "generate aborted")
		default:
		}

		req := Request{
			Model:           opts.Model,
			Provider:        opts.Provider,
			Messages:        messages,
			Tools:           toolDefs(opts.Tools),
			ToolChoice:      ToolChoiceAuto,
			ReasoningEffort: opts.ReasoningEffort,
		}
		resp, err := c.Complete(ctx, req)
		if err != nil {
			return result, err
		}
		result.Final = resp
		result.Usage = AddUsage(result.Usage, resp.Usage)

		step := StepResult{Response: resp}

		if opts.StopWhen != nil && opts.StopWhen(resp) {
			result.Steps = append(result.Steps, step)
			return result, nil
		}

		calls := resp.ToolCalls()
		if len(calls) == 0 || resp.FinishReason.Reason != FinishToolCalls || round == maxRounds {
			result.Steps = append(result.Steps, step)
			return result, nil
		}

		assistantParts := []ContentPart{}
		if resp.Text() != "" {
			assistantParts = append(assistantParts, ContentPart{Type: ContentText, Text: resp.Text()})
		}
		for _, tc := range calls {
			argsJSON, _ := json.Marshal(tc.Arguments)
			assistantParts = append(assistantParts, ContentPart{
				Type: ContentToolCall, ToolCallID: tc.ID, ToolName: tc.Name, ToolArguments: argsJSON,
			})
		}
		messages = append(messages, Message{Role: RoleAssistant, Parts: assistantParts})

		toolResults := executeToolCallsConcurrently(ctx, opts.Tools, calls, c.logger)
		step.ToolResults = toolResults
		for _, tr := range toolResults {
			messages = append(messages, Message{
				Role:       RoleTool,
				ToolCallID: tr.ToolCallID,
				Parts:      []ContentPart{tr},
			})
		}
		result.Steps = append(result.Steps, step)
	}

	return result, nil
}

// executeToolCallsConcurrently runs every call's executor in parallel and
// returns tool_result parts in call order, matching the session's tool
// round semantics (results ordered by input regardless of completion
// order).
func executeToolCallsConcurrently(ctx context.Context, tools []GenerateTool, calls []ToolCall, logger *zap.Logger) []ContentPart {
	out := make([]ContentPart, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		i, call := i, call
		safego.Go(logger, fmt.Sprintf("generate-tool-call:%s", call.Name), func() {
			defer wg.Done()
			tool, ok := findTool(tools, call.Name)
			if !ok {
				out[i] = ContentPart{Type: ContentToolResult, ToolCallID: call.ID, ToolResultContent: "Unknown tool: " + call.Name, IsError: true}
				return
			}
			text, ok := tool.Executor(ctx, call.Arguments)
			out[i] = ContentPart{Type: ContentToolResult, ToolCallID: call.ID, ToolResultContent: text, IsError: !ok}
		})
	}
	wg.Wait()
	return out
}

// GenerateObject forces a JSON response via ResponseFormat when the
// target model supports it; schemaSupported=false takes the tool-based
// extraction path: a single required tool named "_output" whose
// parameters are the schema, run for exactly one round.
func (c *Client) GenerateObject(ctx context.Context, opts GenerateOptions, schema json.RawMessage, schemaSupported bool) (json.RawMessage, error) {
	if schemaSupported {
		req := Request{
			Model:    opts.Model,
			Provider: opts.Provider,
			Messages: buildInitialMessages(opts),
			ResponseFormat: &ResponseFormat{
				Type:       "json_schema",
				JSONSchema: schema,
				Strict:     true,
			},
			ToolChoice: ToolChoiceAuto,
		}
		resp, err := c.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		text := resp.Text()
		if text == "" || !json.Valid([]byte(text)) {
			return nil, NewNoObjectGeneratedError("provider returned no parsable object")
		}
		return json.RawMessage(text), nil
	}

	req := Request{
		Model:    opts.Model,
		Provider: opts.Provider,
		Messages: buildInitialMessages(opts),
		Tools: []ToolDefinition{{
			Name:       "_output",
			Parameters: schema,
		}},
		ToolChoice: ToolChoiceNamed("_output"),
	}
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	calls := resp.ToolCalls()
	if len(calls) == 0 {
		return nil, NewNoObjectGeneratedError("provider made no tool call for object extraction")
	}
	out, err := json.Marshal(calls[0].Arguments)
	if err != nil {
		return nil, NewNoObjectGeneratedError("could not encode extracted arguments: " + err.Error())
	}
	return out, nil
}
