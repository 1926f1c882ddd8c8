// Package llm is the provider-neutral client spine: request/response
// types, the middleware onion, the streaming event bus, the provider
// adapter registry, the error taxonomy, and the retry policy shared by
// the session loop and the pipeline engine's codergen handler.
package llm

import "encoding/json"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleDeveloper Role = "developer"
)

// ContentPartType discriminates the ContentPart union.
type ContentPartType string

const (
	ContentText             ContentPartType = "text"
	ContentImage            ContentPartType = "image"
	ContentAudio            ContentPartType = "audio"
	ContentDocument         ContentPartType = "document"
	ContentToolCall         ContentPartType = "tool_call"
	ContentToolResult       ContentPartType = "tool_result"
	ContentThinking         ContentPartType = "thinking"
	ContentRedactedThinking ContentPartType = "redacted_thinking"
)

// ContentPart is a tagged union over the message content kinds a Message
// may carry. Only the fields relevant to Type are populated.
type ContentPart struct {
	Type ContentPartType `json:"type"`

	// text / thinking
	Text string `json:"text,omitempty"`

	// image / audio / document
	MediaURL  string `json:"media_url,omitempty"`
	MediaData string `json:"media_data,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`

	// tool_call
	ToolCallID    string          `json:"tool_call_id,omitempty"`
	ToolName      string          `json:"tool_name,omitempty"`
	ToolArguments json.RawMessage `json:"tool_arguments,omitempty"`
	ToolArgsRaw   string          `json:"tool_args_raw,omitempty"`

	// tool_result
	ToolResultContent string `json:"tool_result_content,omitempty"`
	IsError           bool   `json:"is_error,omitempty"`
}

// Message is one entry in a provider request's conversation. Identity is
// by position — messages carry no id of their own.
type Message struct {
	Role    Role          `json:"role"`
	Parts   []ContentPart `json:"parts"`
	Name    string        `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // set when Role == RoleTool
}

// TextContent concatenates the text parts of a message.
func (m Message) TextContent() string {
	out := ""
	for _, p := range m.Parts {
		if p.Type == ContentText {
			out += p.Text
		}
	}
	return out
}

// HasMedia reports whether the message carries any non-text, non-tool
// content part.
func (m Message) HasMedia() bool {
	for _, p := range m.Parts {
		switch p.Type {
		case ContentImage, ContentAudio, ContentDocument:
			return true
		}
	}
	return false
}

func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []ContentPart{{Type: ContentText, Text: text}}}
}

// Usage accumulates token counts for a single call or a whole run.
// Optional fields are nil-able so add() can distinguish "zero" from
// "not reported by this provider".
type Usage struct {
	InputTokens       int  `json:"input_tokens"`
	OutputTokens      int  `json:"output_tokens"`
	TotalTokens       int  `json:"total_tokens"`
	ReasoningTokens   *int `json:"reasoning_tokens,omitempty"`
	CacheReadTokens   *int `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens  *int `json:"cache_write_tokens,omitempty"`
}

func intPtr(v int) *int { return &v }

func addOptional(a, b *int) *int {
	if a == nil && b == nil {
		return nil
	}
	av, bv := 0, 0
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return intPtr(av + bv)
}

// ZeroUsage returns the additive identity for Usage.
func ZeroUsage() Usage {
	return Usage{}
}

// AddUsage sums two usages field-wise, TotalTokens included; an optional
// field is nil only when it is nil on both sides.
func AddUsage(a, b Usage) Usage {
	out := Usage{
		InputTokens:      a.InputTokens + b.InputTokens,
		OutputTokens:     a.OutputTokens + b.OutputTokens,
		ReasoningTokens:  addOptional(a.ReasoningTokens, b.ReasoningTokens),
		CacheReadTokens:  addOptional(a.CacheReadTokens, b.CacheReadTokens),
		CacheWriteTokens: addOptional(a.CacheWriteTokens, b.CacheWriteTokens),
	}
	out.TotalTokens = a.TotalTokens + b.TotalTokens
	return out
}

type FinishReasonKind string

const (
	FinishStop          FinishReasonKind = "stop"
	FinishLength         FinishReasonKind = "length"
	FinishToolCalls      FinishReasonKind = "tool_calls"
	FinishContentFilter  FinishReasonKind = "content_filter"
	FinishError          FinishReasonKind = "error"
	FinishOther          FinishReasonKind = "other"
)

type FinishReason struct {
	Reason FinishReasonKind `json:"reason"`
	Raw    string           `json:"raw,omitempty"`
}

// ToolCall is the normalized, resolved view of a tool_call content part:
// arguments are always a parsed map, with the raw string preserved
// whenever the provider sent arguments as a JSON-encoded string.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	RawArgs   string                 `json:"raw_args,omitempty"`
}

// Response is a completed (non-streaming) model turn.
type Response struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Provider     string       `json:"provider"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`
	Warnings     []string     `json:"warnings,omitempty"`
}

// Text concatenates the text parts of the final message.
func (r Response) Text() string {
	return r.Message.TextContent()
}

// ToolCalls extracts and normalizes tool_call parts from the final
// message, JSON-parsing string-encoded arguments when needed.
func (r Response) ToolCalls() []ToolCall {
	var out []ToolCall
	for _, p := range r.Message.Parts {
		if p.Type != ContentToolCall {
			continue
		}
		tc := ToolCall{ID: p.ToolCallID, Name: p.ToolName, RawArgs: p.ToolArgsRaw}
		args := map[string]interface{}{}
		switch {
		case len(p.ToolArguments) > 0:
			_ = json.Unmarshal(p.ToolArguments, &args)
		case p.ToolArgsRaw != "":
			_ = json.Unmarshal([]byte(p.ToolArgsRaw), &args)
		}
		tc.Arguments = args
		out = append(out, tc)
	}
	return out
}

// Reasoning concatenates thinking parts; returns ("", false) when the
// message carries none.
func (r Response) Reasoning() (string, bool) {
	found := false
	out := ""
	for _, p := range r.Message.Parts {
		if p.Type == ContentThinking {
			out += p.Text
			found = true
		}
	}
	return out, found
}
