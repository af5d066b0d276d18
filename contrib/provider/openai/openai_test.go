package openai

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

const toolCallCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "echo", "arguments": "{\"msg\":\"hi\"}"}
      }]
    }
  }]
}`

func TestGenerateToolCall(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(toolCallCompletion))
	}))
	defer server.Close()

	p := New((&Config{APIKey: "test"}).WithBaseURL(server.URL + "/"))

	echo := tool.FunctionTool{
		Name:        "echo",
		Description: "echo a message",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{"msg": map[string]any{"type": "string"}}},
	}
	history := []*message.Message{
		message.NewMessage(message.RoleSystem, "be brief"),
		message.NewMessage(message.RoleUser, "say hi"),
		message.NewToolCallMessage("", []message.ToolCall{{ID: "call_0", Name: "echo", Arguments: `{"msg":"x"}`}}),
		message.NewToolResponseMessage("call_0", "echo", "x"),
	}

	msg, err := p.Generate(context.Background(), &agent.GenerateRequest{
		Messages: history,
		Tools:    []map[string]any{echo.ToJSONSchema()},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if msg.Role != message.RoleAssistant || len(msg.ToolCalls) != 1 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if tc := msg.ToolCalls[0]; tc.ID != "call_1" || tc.Name != "echo" || tc.Arguments != `{"msg":"hi"}` {
		t.Fatalf("unexpected tool call: %+v", tc)
	}

	if body["model"] != "gpt-4o-mini" {
		t.Fatalf("model = %v", body["model"])
	}
	tools, _ := body["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected one tool in request, got %v", body["tools"])
	}
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	if fn["name"] != "echo" {
		t.Fatalf("tool name = %v", fn["name"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if role := msgs[3].(map[string]any)["role"]; role != "tool" {
		t.Fatalf("last message role = %v", role)
	}
}

func TestGenerateNilRequest(t *testing.T) {
	if _, err := New(DefaultConfig()).Generate(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil request")
	}
}
