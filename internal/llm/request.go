package llm

import "encoding/json"

type ReasoningEffort string

const (
	ReasoningNone   ReasoningEffort = "none"
	ReasoningLow    ReasoningEffort = "low"
	ReasoningMedium ReasoningEffort = "medium"
	ReasoningHigh   ReasoningEffort = "high"
)

// ToolChoice selects whether/which tool the model must call.
// Mode is one of "auto", "required", "none", or "name" (Name populated).
type ToolChoice struct {
	Mode string `json:"mode"`
	Name string `json:"name,omitempty"`
}

var (
	ToolChoiceAuto     = ToolChoice{Mode: "auto"}
	ToolChoiceRequired = ToolChoice{Mode: "required"}
	ToolChoiceNone     = ToolChoice{Mode: "none"}
)

func ToolChoiceNamed(name string) ToolChoice {
	return ToolChoice{Mode: "name", Name: name}
}

// ToolDefinition is the model-visible shape of a registered tool: name,
// description, and a JSON-schema-lite parameter shape. No executor is
// carried here — that lives in the tool registry.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type ResponseFormat struct {
	Type       string          `json:"type"` // "text" | "json_object" | "json_schema"
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
	Strict     bool            `json:"strict,omitempty"`
}

// Request is the provider-neutral call shape the client normalizes
// before dispatching to an adapter.
type Request struct {
	Model           string                     `json:"model"`
	Provider        string                     `json:"provider,omitempty"` // chooses adapter; "" = client default
	Messages        []Message                  `json:"messages"`
	Tools           []ToolDefinition           `json:"tools,omitempty"`
	ToolChoice      ToolChoice                 `json:"tool_choice"`
	ResponseFormat  *ResponseFormat            `json:"response_format,omitempty"`
	Temperature     *float64                   `json:"temperature,omitempty"`
	TopP            *float64                   `json:"top_p,omitempty"`
	MaxTokens       *int                       `json:"max_tokens,omitempty"`
	StopSequences   []string                   `json:"stop_sequences,omitempty"`
	ReasoningEffort ReasoningEffort            `json:"reasoning_effort,omitempty"`
	ProviderOptions map[string]json.RawMessage `json:"provider_options,omitempty"`
}

// Clone returns a shallow-safe copy suitable for middleware mutation
// (slices/maps are re-sliced/copied so mutating the clone never touches
// the caller's original request).
func (r Request) Clone() Request {
	out := r
	if r.Messages != nil {
		out.Messages = append([]Message(nil), r.Messages...)
	}
	if r.Tools != nil {
		out.Tools = append([]ToolDefinition(nil), r.Tools...)
	}
	if r.StopSequences != nil {
		out.StopSequences = append([]string(nil), r.StopSequences...)
	}
	if r.ProviderOptions != nil {
		opts := make(map[string]json.RawMessage, len(r.ProviderOptions))
		for k, v := range r.ProviderOptions {
			opts[k] = v
		}
		out.ProviderOptions = opts
	}
	return out
}
