// Package session persists multi-turn conversations on top of a history store.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
	"github.com/sweetpotato0/mcpx-agents/message"
	"github.com/sweetpotato0/mcpx-agents/runner"
)

// Store persists conversation items.
type Store interface {
	Load(ctx context.Context, conversationID string) ([]*message.Message, error)
	Append(ctx context.Context, conversationID string, msgs ...*message.Message) error
	Clear(ctx context.Context, conversationID string) error
}

// TurnRunner runs one agent turn over the full history.
type TurnRunner interface {
	Run(ctx context.Context, history []*message.Message) (*runner.Result, error)
}

// TurnRunnerFunc adapts a function to TurnRunner.
type TurnRunnerFunc func(ctx context.Context, history []*message.Message) (*runner.Result, error)

// Run calls f.
func (f TurnRunnerFunc) Run(ctx context.Context, history []*message.Message) (*runner.Result, error) {
	return f(ctx, history)
}

// MessageCounter counts tokens of a message.
type MessageCounter interface {
	CountMessage(msg *message.Message) int
}

// State represents the conversation lifecycle.
type State string

const (
	StateActive State = "active"
	StateClosed State = "closed"
)

// Option configures a Conversation.
type Option func(*Conversation)

// WithTokenBudget drops the oldest non-system messages before each run until
// the history fits in budget tokens. The stored history is not touched.
func WithTokenBudget(counter MessageCounter, budget int) Option {
	return func(c *Conversation) {
		c.counter = counter
		c.budget = budget
	}
}

// Conversation serializes turns of a single conversation.
type Conversation struct {
	id        string
	store     Store
	runner    TurnRunner
	counter   MessageCounter
	budget    int
	mu        sync.Mutex
	state     State
	updatedAt time.Time
}

// NewConversation binds a conversation id to its store and runner.
func NewConversation(id string, store Store, r TurnRunner, opts ...Option) (*Conversation, error) {
	if id == "" || store == nil || r == nil {
		return nil, fmt.Errorf("session: %w: id, store and runner are required", mcpxerrors.ErrInvalidConfig)
	}
	c := &Conversation{
		id:        id,
		store:     store,
		runner:    r,
		state:     StateActive,
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string {
	return c.id
}

// State returns the conversation state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UpdatedAt returns the time of the last successful turn.
func (c *Conversation) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// Turn appends input as a user message, runs the agent and persists the
// user message with every produced item. Nothing is stored on failure.
func (c *Conversation) Turn(ctx context.Context, input string) (*runner.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return nil, fmt.Errorf("conversation %s is not active", c.id)
	}

	history, err := c.store.Load(ctx, c.id)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", c.id, err)
	}

	user := message.NewMessage(message.RoleUser, input)
	history = append(history, user)
	history = c.fit(history)

	res, err := c.runner.Run(ctx, history)
	if err != nil {
		return nil, err
	}

	items := make([]*message.Message, 0, len(res.NewItems)+1)
	items = append(items, user)
	items = append(items, res.NewItems...)
	if err := c.store.Append(ctx, c.id, items...); err != nil {
		return nil, fmt.Errorf("save conversation %s: %w", c.id, err)
	}

	c.updatedAt = time.Now()
	return res, nil
}

// Messages returns the persisted history.
func (c *Conversation) Messages(ctx context.Context) ([]*message.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Load(ctx, c.id)
}

// Reset clears the persisted history.
func (c *Conversation) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Clear(ctx, c.id); err != nil {
		return fmt.Errorf("reset conversation %s: %w", c.id, err)
	}
	c.updatedAt = time.Now()
	return nil
}

// Close marks the conversation as closed.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
}

// fit trims history from the oldest side to the token budget. System
// messages and the last message always stay.
func (c *Conversation) fit(history []*message.Message) []*message.Message {
	if c.counter == nil || c.budget <= 0 {
		return history
	}

	total := 0
	for _, m := range history {
		total += c.counter.CountMessage(m)
	}
	if total <= c.budget {
		return history
	}

	last := len(history) - 1
	dropped := make([]bool, len(history))
	for i := 0; i < last && total > c.budget; i++ {
		if history[i].Role == message.RoleSystem {
			continue
		}
		dropped[i] = true
		total -= c.counter.CountMessage(history[i])
	}

	out := make([]*message.Message, 0, len(history))
	leading := true
	for i, m := range history {
		if dropped[i] {
			continue
		}
		if m.Role != message.RoleSystem {
			if leading && m.Role == message.RoleTool && i != last {
				continue
			}
			leading = false
		}
		out = append(out, m)
	}
	return out
}
