package tool

import (
	"encoding/json"
	"fmt"
	"math"
)

// Schema is the JSON-schema-lite shape this package understands: a flat
// object schema with per-property declared types and a required list.
// Nothing recursive, no $ref, no oneOf — just enough to catch obviously
// wrong tool calls.
type Schema struct {
	Type       string                    `json:"type"`
	Required   []string                  `json:"required"`
	Properties map[string]PropertySchema `json:"properties"`
}

type PropertySchema struct {
	Type string `json:"type"`
}

// ValidationResult mirrors the {valid, error} envelope returned to
// callers.
type ValidationResult struct {
	Valid bool
	Error string
}

func valid() ValidationResult { return ValidationResult{Valid: true} }

func invalid(format string, a ...interface{}) ValidationResult {
	return ValidationResult{Valid: false, Error: fmt.Sprintf(format, a...)}
}

// ValidateCall checks args against a tool's declared parameter schema.
// An absent or non-object schema accepts everything. Required keys must
// be present. Declared properties are type-checked; extra properties not
// named in the schema are silently allowed.
func ValidateCall(name string, args map[string]interface{}, rawSchema json.RawMessage) ValidationResult {
	if len(rawSchema) == 0 {
		return valid()
	}

	var schema Schema
	if err := json.Unmarshal(rawSchema, &schema); err != nil {
		return valid()
	}
	if schema.Type != "" && schema.Type != "object" {
		return valid()
	}

	for _, req := range schema.Required {
		if _, ok := args[req]; !ok {
			return invalid("missing required parameter: %s", req)
		}
	}

	for key, prop := range schema.Properties {
		val, present := args[key]
		if !present {
			continue
		}
		if !matchesType(val, prop.Type) {
			return invalid("parameter %q expected type %q", key, prop.Type)
		}
	}

	return valid()
}

func matchesType(val interface{}, declared string) bool {
	if declared == "" {
		return true
	}
	switch declared {
	case "string":
		_, ok := val.(string)
		return ok
	case "boolean":
		_, ok := val.(bool)
		return ok
	case "number":
		_, ok := val.(float64)
		return ok
	case "integer":
		f, ok := val.(float64)
		if !ok {
			return false
		}
		return f == math.Trunc(f)
	case "array":
		_, ok := val.([]interface{})
		return ok
	case "object":
		_, ok := val.(map[string]interface{})
		return ok
	default:
		return true
	}
}

// UnknownToolResult is the validation outcome for a name not present in
// the registry.
func UnknownToolResult(name string) ValidationResult {
	return invalid("Unknown tool: %s", name)
}
