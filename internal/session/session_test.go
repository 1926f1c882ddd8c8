package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentspine/spine/internal/llm"
	"github.com/agentspine/spine/internal/session"
	"github.com/agentspine/spine/internal/tool"
)

// scriptedAdapter replays one Response per Complete call, cycling to the
// last entry once exhausted so a misconfigured test hangs instead of
// panicking on an out-of-range index.
type scriptedAdapter struct {
	responses []llm.Response
	calls     int
}

func (a *scriptedAdapter) Name() string { return "mock" }

func (a *scriptedAdapter) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	i := a.calls
	if i >= len(a.responses) {
		i = len(a.responses) - 1
	}
	a.calls++
	return a.responses[i], nil
}

func (a *scriptedAdapter) Stream(_ context.Context, _ llm.Request) (*llm.Stream, error) {
	return nil, nil
}

func textResponse(text string) llm.Response {
	return llm.Response{
		ID:      "r1",
		Message: llm.TextMessage(llm.RoleAssistant, text),
	}
}

func toolCallResponse(id, name, argsJSON string) llm.Response {
	return llm.Response{
		ID: "r1",
		Message: llm.Message{
			Role: llm.RoleAssistant,
			Parts: []llm.ContentPart{{
				Type: llm.ContentToolCall, ToolCallID: id, ToolName: name, ToolArgsRaw: argsJSON,
			}},
		},
	}
}

func newTestSession(t *testing.T, adapter *scriptedAdapter, registry *tool.Registry, maxTurns, maxRounds int) *session.Session {
	t.Helper()
	reg := llm.NewRegistry()
	reg.RegisterAdapter(adapter)
	client := llm.NewClient(reg, llm.WithDefaultProvider("mock"))

	if registry == nil {
		registry = tool.NewRegistry()
	}

	return session.NewSession(session.NewSessionOptions{
		Profile: &session.Profile{
			Provider:              "mock",
			Model:                 "mock-model",
			Tools:                 registry,
			ContextWindowSize:     100000,
			MaxToolRoundsPerInput: maxRounds,
			MaxTurns:              maxTurns,
			MaxSubagentDepth:      3,
		},
		Client: client,
	})
}

func TestSubmitNaturalCompletion(t *testing.T) {
	adapter := &scriptedAdapter{responses: []llm.Response{textResponse("hello there")}}
	s := newTestSession(t, adapter, nil, 0, 10)

	text, turns, err := s.Submit("hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Equal(t, 2, turns) // user + assistant

	history := s.GetHistory()
	require.Len(t, history, 2)
	assert.Equal(t, session.TurnUser, history[0].Kind)
	assert.Equal(t, session.TurnAssistant, history[1].Kind)
}

func TestSubmitOneToolRound(t *testing.T) {
	registry := tool.NewRegistry()
	registry.Register(tool.Registration{
		Definition: tool.Definition{Name: "echo"},
		Executor: tool.ExecutorFunc(func(_ context.Context, args map[string]interface{}, _ interface{}) (interface{}, error) {
			return args["text"], nil
		}),
	})

	adapter := &scriptedAdapter{responses: []llm.Response{
		toolCallResponse("call-1", "echo", `{"text":"ping"}`),
		textResponse("done"),
	}}
	s := newTestSession(t, adapter, registry, 0, 10)

	text, _, err := s.Submit("go")
	require.NoError(t, err)
	assert.Equal(t, "done", text)

	history := s.GetHistory()
	require.Len(t, history, 4) // user, assistant(tool_call), tool_results, assistant(final)
	assert.Equal(t, session.TurnToolResults, history[2].Kind)
	require.Len(t, history[2].Results, 1)
	assert.Equal(t, "call-1", history[2].Results[0].ToolCallID)
	assert.False(t, history[2].Results[0].IsError)

	// every tool_call id in the assistant turn has exactly one matching
	// result in the following tool_results turn.
	assistantCallIDs := map[string]bool{}
	for _, tc := range history[1].ToolCalls {
		assistantCallIDs[tc.ID] = true
	}
	for _, r := range history[2].Results {
		assert.True(t, assistantCallIDs[r.ToolCallID])
	}
}

func TestSubmitUnknownTool(t *testing.T) {
	adapter := &scriptedAdapter{responses: []llm.Response{
		toolCallResponse("call-1", "does_not_exist", `{}`),
		textResponse("recovered"),
	}}
	s := newTestSession(t, adapter, nil, 0, 10)

	_, _, err := s.Submit("go")
	require.NoError(t, err)

	history := s.GetHistory()
	require.Len(t, history, 4)
	result := history[2].Results[0]
	assert.True(t, result.IsError)
	assert.Equal(t, "Unknown tool: does_not_exist", result.Content)
}

func TestSubmitAbortMidToolDropsToolResultsTurn(t *testing.T) {
	registry := tool.NewRegistry()
	adapter := &scriptedAdapter{responses: []llm.Response{
		toolCallResponse("call-1", "slow", `{}`),
		textResponse("should never be reached"),
	}}
	s := newTestSession(t, adapter, registry, 0, 10)

	registry.Register(tool.Registration{
		Definition: tool.Definition{Name: "slow"},
		Executor: tool.ExecutorFunc(func(_ context.Context, _ map[string]interface{}, _ interface{}) (interface{}, error) {
			s.Abort()
			return "ok", nil
		}),
	})

	_, _, err := s.Submit("go")
	require.Error(t, err)

	history := s.GetHistory()
	require.Len(t, history, 2) // user, assistant(tool_call) — no tool_results turn
	for _, turn := range history {
		assert.NotEqual(t, session.TurnToolResults, turn.Kind)
	}
}

func TestSubmitTurnLimitHalts(t *testing.T) {
	adapter := &scriptedAdapter{responses: []llm.Response{
		toolCallResponse("call-1", "noop", `{}`),
	}}
	registry := tool.NewRegistry()
	registry.Register(tool.Registration{
		Definition: tool.Definition{Name: "noop"},
		Executor: tool.ExecutorFunc(func(_ context.Context, _ map[string]interface{}, _ interface{}) (interface{}, error) {
			return "ok", nil
		}),
	})
	// max_turns=2 counts the initial user turn plus one assistant turn;
	// the round loop must stop before a third user+assistant turn forms.
	s := newTestSession(t, adapter, registry, 2, 0)

	_, _, err := s.Submit("go")
	require.NoError(t, err)

	turnLimitHit := false
	s.Events().Subscribe(func(e session.Event) {
		if e.Kind == session.EventTurnLimit {
			turnLimitHit = true
		}
	})
	// Re-run to observe the event firing on a second input, since the
	// subscriber above was attached after the first submit completed.
	_, _, err = s.Submit("go again")
	require.NoError(t, err)
	assert.True(t, turnLimitHit)
}

func TestSubmitLoopDetection(t *testing.T) {
	registry := tool.NewRegistry()
	registry.Register(tool.Registration{
		Definition: tool.Definition{Name: "noop"},
		Executor: tool.ExecutorFunc(func(_ context.Context, _ map[string]interface{}, _ interface{}) (interface{}, error) {
			return "ok", nil
		}),
	})

	responses := make([]llm.Response, 0, 8)
	for i := 0; i < 7; i++ {
		responses = append(responses, toolCallResponse("call", "noop", `{"n":1}`))
	}
	responses = append(responses, textResponse("stop"))
	adapter := &scriptedAdapter{responses: responses}

	s := newTestSession(t, adapter, registry, 0, 8)

	var loopEvents int
	s.Events().Subscribe(func(e session.Event) {
		if e.Kind == session.EventLoopDetection {
			loopEvents++
		}
	})

	_, _, err := s.Submit("go")
	require.NoError(t, err)
	assert.Greater(t, loopEvents, 0)
}

func TestSessionStartEndMonotonic(t *testing.T) {
	adapter := &scriptedAdapter{responses: []llm.Response{textResponse("ok")}}
	s := newTestSession(t, adapter, nil, 0, 10)

	var starts, ends int
	s.Events().Subscribe(func(e session.Event) {
		switch e.Kind {
		case session.EventSessionStart:
			starts++
		case session.EventSessionEnd:
			ends++
		}
	})

	_, _, err := s.Submit("hi")
	require.NoError(t, err)
	s.Close()
	s.Close() // idempotent: must not emit SESSION_END twice

	assert.Equal(t, 0, starts) // SESSION_START already fired before this subscriber attached
	assert.Equal(t, 1, ends)
}

func TestSubmitAfterCloseFails(t *testing.T) {
	adapter := &scriptedAdapter{responses: []llm.Response{textResponse("ok")}}
	s := newTestSession(t, adapter, nil, 0, 10)
	s.Close()

	_, _, err := s.Submit("hi")
	assert.ErrorIs(t, err, session.ErrClosed)
}
