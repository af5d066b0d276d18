// Package provider holds helpers shared by the LLM provider adapters.
package provider

import (
	"encoding/json"
	"fmt"

	"github.com/sweetpotato0/mcpx-agents/agent"
)

// Provider is implemented by every adapter in contrib/provider.
type Provider = agent.LLMClient

// Function is a tool definition decoded from an agent tool schema.
type Function struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Functions decodes schemas shaped like {"type":"function","function":{...}}.
func Functions(schemas []map[string]any) ([]Function, error) {
	out := make([]Function, 0, len(schemas))
	for _, schema := range schemas {
		fn, ok := schema["function"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tool schema has no function definition")
		}
		name, _ := fn["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("tool schema has no name")
		}
		desc, _ := fn["description"].(string)
		params, _ := fn["parameters"].(map[string]any)
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, Function{Name: name, Description: desc, Parameters: params})
	}
	return out, nil
}

// Arguments parses tool call arguments. Blank input yields an empty map.
func Arguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// EncodeArguments renders arguments as the JSON text stored on a tool call.
func EncodeArguments(args map[string]any) (string, error) {
	if args == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool arguments: %w", err)
	}
	return string(raw), nil
}
