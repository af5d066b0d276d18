package message

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is a single conversation item. The agent runtime produces assistant
// and tool messages; callers append them to the history they pass back in.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
	ToolID    string         `json:"tool_id,omitempty"`   // For tool response messages
	ToolName  string         `json:"tool_name,omitempty"` // For tool response messages
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToolCall represents a tool invocation request. Arguments holds the raw JSON
// payload exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NewMessage creates a new message with the given role and content
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// NewToolCallMessage creates an assistant message carrying tool calls
func NewToolCallMessage(content string, toolCalls []ToolCall) *Message {
	msg := NewMessage(RoleAssistant, content)
	msg.ToolCalls = toolCalls
	return msg
}

// NewToolResponseMessage creates a tool response message
func NewToolResponseMessage(toolID, toolName, content string) *Message {
	msg := NewMessage(RoleTool, content)
	msg.ToolID = toolID
	msg.ToolName = toolName
	return msg
}

// Text returns the textual content of the message.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	return m.Content
}

// HasToolCalls reports whether the message requests tool invocations.
func (m *Message) HasToolCalls() bool {
	return m != nil && len(m.ToolCalls) > 0
}

// Clone creates a deep copy of the message.
func Clone(msg *Message) *Message {
	if msg == nil {
		return nil
	}
	cloned := *msg
	if msg.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(msg.Metadata))
		for k, v := range msg.Metadata {
			cloned.Metadata[k] = v
		}
	}
	if len(msg.ToolCalls) > 0 {
		cloned.ToolCalls = append([]ToolCall(nil), msg.ToolCalls...)
	}
	return &cloned
}

// CloneMessages copies a slice of messages.
func CloneMessages(msgs []*Message) []*Message {
	if len(msgs) == 0 {
		return nil
	}
	clones := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		clones = append(clones, Clone(msg))
	}
	return clones
}

// ArgsMap decodes the call arguments into a map. Empty arguments decode to an
// empty map.
func (c ToolCall) ArgsMap() (map[string]any, error) {
	args := make(map[string]any)
	if c.Arguments == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(c.Arguments), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// Marshal encodes a message for storage backends.
func Marshal(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal decodes a message produced by Marshal.
func Unmarshal(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
