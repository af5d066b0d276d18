package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sweetpotato0/mcpx-agents/agent"
	"github.com/sweetpotato0/mcpx-agents/message"
	"github.com/sweetpotato0/mcpx-agents/tool"
)

const toolUseResponse = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5-20250929",
  "content": [
    {"type": "text", "text": "calling echo"},
    {"type": "tool_use", "id": "tu_1", "name": "echo", "input": {"msg":"hi"}}
  ],
  "stop_reason": "tool_use",
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`

func TestGenerateToolUse(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(toolUseResponse))
	}))
	defer server.Close()

	p := New(DefaultConfig("test", server.URL+"/"))

	echo := tool.FunctionTool{
		Name:        "echo",
		Description: "echo a message",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"msg": map[string]any{"type": "string"}},
			"required":   []any{"msg"},
		},
	}
	history := []*message.Message{
		message.NewMessage(message.RoleSystem, "be brief"),
		message.NewMessage(message.RoleUser, "say hi twice"),
		message.NewToolCallMessage("", []message.ToolCall{
			{ID: "tu_a", Name: "echo", Arguments: `{"msg":"a"}`},
			{ID: "tu_b", Name: "echo", Arguments: `{"msg":"b"}`},
		}),
		message.NewToolResponseMessage("tu_a", "echo", "a"),
		message.NewToolResponseMessage("tu_b", "echo", "b"),
	}

	msg, err := p.Generate(context.Background(), &agent.GenerateRequest{
		Messages: history,
		Tools:    []map[string]any{echo.ToJSONSchema()},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if msg.Content != "calling echo" {
		t.Fatalf("content = %q", msg.Content)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Name != "echo" || msg.ToolCalls[0].ID != "tu_1" {
		t.Fatalf("unexpected tool calls: %+v", msg.ToolCalls)
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(msg.ToolCalls[0].Arguments), &args); err != nil || args["msg"] != "hi" {
		t.Fatalf("arguments = %q", msg.ToolCalls[0].Arguments)
	}

	msgs, _ := body["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("expected user, assistant and merged tool results, got %d messages", len(msgs))
	}
	results := msgs[2].(map[string]any)["content"].([]any)
	if len(results) != 2 {
		t.Fatalf("expected 2 tool results in one message, got %d", len(results))
	}
	tools, _ := body["tools"].([]any)
	if len(tools) != 1 || tools[0].(map[string]any)["name"] != "echo" {
		t.Fatalf("unexpected tools: %v", body["tools"])
	}
	if _, ok := body["system"]; !ok {
		t.Fatal("expected system prompt in request")
	}
}
