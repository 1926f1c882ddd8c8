// Package tool implements the name→(definition, executor) registry, its
// JSON-schema-lite argument validation, and the dispatch envelope the
// session's tool round and the pipeline's Tool handler both call into.
package tool

import (
	"context"
	"encoding/json"
)

// Executor runs a tool call's arguments against an execution environment
// and returns either a plain string or a structured (JSON-marshalable)
// result.
type Executor interface {
	Execute(ctx context.Context, args map[string]interface{}, env interface{}) (interface{}, error)
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(ctx context.Context, args map[string]interface{}, env interface{}) (interface{}, error)

func (f ExecutorFunc) Execute(ctx context.Context, args map[string]interface{}, env interface{}) (interface{}, error) {
	return f(ctx, args, env)
}

// Definition is the model-visible description of a tool: name,
// description, and a JSON-schema-lite parameter shape used both to
// advertise the tool to providers and to validate incoming calls.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Registration pairs a Definition with the Executor that backs it.
type Registration struct {
	Definition Definition
	Executor   Executor
}

// DispatchResult is the envelope dispatch() always returns: dispatch
// never lets an exception or unknown-tool condition escape as an error.
type DispatchResult struct {
	Output  string
	IsError bool
}
