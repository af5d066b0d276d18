package tool

import (
	"context"
	"fmt"
)

// Descriptor is the provider-side definition of a remote tool.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// Content is one block of a remote tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallResult is the provider's answer to a tool call.
type CallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"is_error,omitempty"`
}

// FirstText returns the text of the first content block.
func (r *CallResult) FirstText() (string, error) {
	if r == nil || len(r.Content) == 0 {
		return "", fmt.Errorf("result has no content")
	}
	first := r.Content[0]
	if first.Type != "" && first.Type != "text" {
		return "", fmt.Errorf("first content block is %q, not text", first.Type)
	}
	return first.Text, nil
}

// InvokeFunc is the callback the agent runtime uses to run a tool. It receives
// the raw JSON arguments and always answers with text.
type InvokeFunc func(ctx context.Context, input string) string

// FunctionTool is a tool as the agent runtime sees it.
type FunctionTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
	OnInvoke    InvokeFunc     `json:"-"`
}

// Invoke runs the tool. A tool without a callback reports that as text.
func (t FunctionTool) Invoke(ctx context.Context, input string) string {
	if t.OnInvoke == nil {
		return Result{Tool: t.Name, Err: fmt.Errorf("tool has no handler")}.Text()
	}
	return t.OnInvoke(ctx, input)
}

// Descriptor returns the metadata of the tool.
func (t FunctionTool) Descriptor() Descriptor {
	return Descriptor{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
}

// Schema returns the parameters schema, defaulting to an empty object schema.
func (t FunctionTool) Schema() map[string]any {
	if len(t.InputSchema) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return t.InputSchema
}

// ToJSONSchema returns the tool definition in the OpenAI function format.
func (t FunctionTool) ToJSONSchema() map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.Schema(),
		},
	}
}

// Result is the outcome of a single tool invocation.
type Result struct {
	Tool   string
	Output string
	Err    error
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Text converts the result to the string shape the agent runtime expects.
// Failures become a diagnostic naming the tool.
func (r Result) Text() string {
	if r.Err != nil {
		return fmt.Sprintf("ERROR call to tool %s failed: %v", r.Tool, r.Err)
	}
	return r.Output
}

// Clone returns a copy of the slice so callers can hand it out without
// sharing the backing array.
func Clone(tools []FunctionTool) []FunctionTool {
	return append([]FunctionTool(nil), tools...)
}

// Names lists tool names in slice order.
func Names(tools []FunctionTool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	return names
}
