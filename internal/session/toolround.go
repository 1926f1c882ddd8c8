package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/agentspine/spine/internal/llm"
	"github.com/agentspine/spine/internal/safego"
	"github.com/agentspine/spine/internal/tool"
)

// defaultToolOutputLimit bounds the model-visible tool output when a
// profile does not declare a tighter per-tool limit.
const defaultToolOutputLimit = 16 * 1024

// truncateForModel applies the configured output limit to the payload
// that will be sent back to the model; the event bus always carries the
// untruncated text regardless of this limit.
func truncateForModel(output string, limit int) string {
	if limit <= 0 || len(output) <= limit {
		return output
	}
	return output[:limit] + "\n...[truncated]"
}

// runToolCall dispatches a single tool call, emitting tool-call-start
// before and tool-call-end (carrying the untruncated output) after.
func runToolCall(ctx context.Context, registry *tool.Registry, env interface{}, bus *Bus, call llm.ToolCall, outputLimit int) ToolResult {
	if bus != nil {
		bus.Emit(EventToolCallStart, map[string]interface{}{"id": call.ID, "name": call.Name})
	}

	var rawArgs interface{} = json.RawMessage(call.RawArgs)
	result := tool.Dispatch(ctx, registry, env, call.Name, rawArgs)

	if bus != nil {
		bus.Emit(EventToolCallEnd, map[string]interface{}{
			"id": call.ID, "name": call.Name, "output": result.Output, "is_error": result.IsError,
		})
	}

	return ToolResult{
		ToolCallID: call.ID,
		Content:    truncateForModel(result.Output, outputLimit),
		IsError:    result.IsError,
	}
}

// runToolRound executes every call in calls, in input order, either
// sequentially or concurrently (when parallel is true and there is more
// than one call), always returning results in input order.
func runToolRound(ctx context.Context, registry *tool.Registry, env interface{}, bus *Bus, calls []llm.ToolCall, parallel bool, outputLimit int, logger *zap.Logger) []ToolResult {
	results := make([]ToolResult, len(calls))

	if !parallel || len(calls) <= 1 {
		for i, call := range calls {
			results[i] = runToolCall(ctx, registry, env, bus, call, outputLimit)
		}
		return results
	}

	var wg sync.WaitGroup
	wg.Add(len(calls))
	for i, call := range calls {
		i, call := i, call
		safego.Go(logger, fmt.Sprintf("tool-call:%s", call.Name), func() {
			defer wg.Done()
			results[i] = runToolCall(ctx, registry, env, bus, call, outputLimit)
		})
	}
	wg.Wait()
	return results
}
