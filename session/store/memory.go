package store

import (
	"context"
	"sync"

	"github.com/sweetpotato0/mcpx-agents/message"
)

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string][]*message.Message
	maxItems int
}

// NewMemoryStore creates an in-memory store. With maxItems > 0 each
// conversation keeps its system messages plus the most recent items.
func NewMemoryStore(maxItems int) *MemoryStore {
	return &MemoryStore{
		items:    make(map[string][]*message.Message),
		maxItems: maxItems,
	}
}

// Load returns a copy of the conversation history.
func (s *MemoryStore) Load(_ context.Context, conversationID string) ([]*message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return message.CloneMessages(s.items[conversationID]), nil
}

// Append adds items to the end of the conversation.
func (s *MemoryStore) Append(_ context.Context, conversationID string, msgs ...*message.Message) error {
	if err := validateID(conversationID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := append(s.items[conversationID], message.CloneMessages(msgs)...)
	s.items[conversationID] = TrimOldest(items, s.maxItems)
	return nil
}

// Clear removes the conversation.
func (s *MemoryStore) Clear(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, conversationID)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// TrimOldest keeps system messages and the newest other messages so that at
// most max messages remain. Tool results left without their assistant call at
// the start of the window are dropped too. max <= 0 disables trimming.
func TrimOldest(msgs []*message.Message, max int) []*message.Message {
	if max <= 0 || len(msgs) <= max {
		return msgs
	}

	systemCount := 0
	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			systemCount++
		}
	}
	keep := max - systemCount
	if keep < 0 {
		keep = 0
	}

	drop := len(msgs) - systemCount - keep
	out := make([]*message.Message, 0, max)
	leading := true
	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			out = append(out, m)
			continue
		}
		if drop > 0 {
			drop--
			continue
		}
		if leading && m.Role == message.RoleTool {
			continue
		}
		leading = false
		out = append(out, m)
	}
	return out
}
