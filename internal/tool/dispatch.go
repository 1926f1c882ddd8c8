package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Dispatch resolves name in the registry, validates args against its
// schema, and invokes its executor. Unknown tool, validation failure,
// and executor panics all collapse into {IsError:true} — nothing here
// ever returns a Go error to the caller.
func Dispatch(ctx context.Context, registry *Registry, env interface{}, name string, rawArgs interface{}) (result DispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			result = DispatchResult{Output: fmt.Sprintf("%v", r), IsError: true}
		}
	}()

	reg, ok := registry.Get(name)
	if !ok {
		return DispatchResult{Output: "Unknown tool: " + name, IsError: true}
	}

	args, err := coerceArgs(rawArgs)
	if err != nil {
		return DispatchResult{Output: "invalid arguments: " + err.Error(), IsError: true}
	}

	v := ValidateCall(name, args, reg.Definition.Parameters)
	if !v.Valid {
		return DispatchResult{Output: v.Error, IsError: true}
	}

	out, err := reg.Executor.Execute(ctx, args, env)
	if err != nil {
		return DispatchResult{Output: err.Error(), IsError: true}
	}

	switch v := out.(type) {
	case string:
		return DispatchResult{Output: v}
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return DispatchResult{Output: fmt.Sprintf("%v", v)}
		}
		return DispatchResult{Output: string(encoded)}
	}
}

// coerceArgs accepts either an already-structured map or a JSON-encoded
// string, matching the tool-call wire contract's either/or shape.
func coerceArgs(raw interface{}) (map[string]interface{}, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		return v, nil
	case nil:
		return map[string]interface{}{}, nil
	case string:
		if v == "" {
			return map[string]interface{}{}, nil
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, err
		}
		return m, nil
	case json.RawMessage:
		var m map[string]interface{}
		if len(v) == 0 {
			return map[string]interface{}{}, nil
		}
		if err := json.Unmarshal(v, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported argument shape %T", raw)
	}
}
