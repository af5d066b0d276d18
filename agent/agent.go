package agent

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/mcpx-agents/config"
	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
	"github.com/sweetpotato0/mcpx-agents/message"
	"github.com/sweetpotato0/mcpx-agents/middleware"
	"github.com/sweetpotato0/mcpx-agents/tool"
)

// DefaultMaxTurns bounds the number of LLM calls in a single run.
const DefaultMaxTurns = 10

// LLMClient defines the interface for LLM providers
type LLMClient interface {
	// Generate produces the next assistant message. Tool calls requested by
	// the model are returned in the message's ToolCalls.
	Generate(ctx context.Context, req *GenerateRequest) (*message.Message, error)
}

// GenerateRequest bundles inputs for a single LLM invocation.
type GenerateRequest struct {
	Messages []*message.Message
	// Tools holds function definitions in the OpenAI function format, see
	// tool.FunctionTool.ToJSONSchema.
	Tools []map[string]any
}

// Agent is an immutable description of an LLM agent: who it is, what it can
// call and how long it may loop. It is safe to share between runs.
type Agent struct {
	name         string
	instructions string
	maxTurns     int
	llm          LLMClient
	tools        []tool.FunctionTool
	middlewares  *middleware.MiddlewareChain
}

// Option is a function that configures an Agent
type Option func(*Agent)

// WithName sets the agent name
func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

// WithInstructions sets the system prompt sent ahead of the history.
func WithInstructions(instructions string) Option {
	return func(a *Agent) {
		a.instructions = instructions
	}
}

// WithMaxTurns sets the maximum number of LLM calls per run
func WithMaxTurns(max int) Option {
	return func(a *Agent) {
		a.maxTurns = max
	}
}

// WithLLM sets the LLM provider
func WithLLM(llm LLMClient) Option {
	return func(a *Agent) {
		a.llm = llm
	}
}

// WithTools appends function tools. Later tools replace earlier ones with the
// same name.
func WithTools(tools ...tool.FunctionTool) Option {
	return func(a *Agent) {
		a.tools = append(a.tools, tools...)
	}
}

// WithMiddleware adds middlewares wrapped around every run
func WithMiddleware(m ...middleware.Middleware) Option {
	return func(a *Agent) {
		for _, mw := range m {
			if mw != nil {
				a.middlewares.Add(mw)
			}
		}
	}
}

// New creates a new agent with the given options. Construction fails when the
// name is empty, the turn limit is not positive or no LLM is configured.
func New(opts ...Option) (*Agent, error) {
	a := &Agent{
		name:        "Agent",
		maxTurns:    DefaultMaxTurns,
		middlewares: middleware.NewChain(),
	}
	for _, opt := range opts {
		opt(a)
	}

	v := config.NewValidator()
	v.RequireNonEmpty("name", a.name)
	v.RequirePositive("maxTurns", a.maxTurns)
	if a.llm == nil {
		v.Add("llm", "an LLM client is required")
	}
	if err := v.Error(); err != nil {
		return nil, fmt.Errorf("agent: %w: %w", mcpxerrors.ErrInvalidConfig, err)
	}

	a.tools = dedupe(a.tools)
	return a, nil
}

func dedupe(tools []tool.FunctionTool) []tool.FunctionTool {
	if len(tools) == 0 {
		return nil
	}
	index := make(map[string]int, len(tools))
	out := make([]tool.FunctionTool, 0, len(tools))
	for _, t := range tools {
		if i, ok := index[t.Name]; ok {
			out[i] = t
			continue
		}
		index[t.Name] = len(out)
		out = append(out, t)
	}
	return out
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Instructions returns the system prompt.
func (a *Agent) Instructions() string { return a.instructions }

// MaxTurns returns the maximum number of LLM calls per run.
func (a *Agent) MaxTurns() int { return a.maxTurns }

// LLM returns the configured provider.
func (a *Agent) LLM() LLMClient { return a.llm }

// Tools returns a copy of the agent's tools.
func (a *Agent) Tools() []tool.FunctionTool {
	return tool.Clone(a.tools)
}

// Tool looks up a tool by name.
func (a *Agent) Tool(name string) (tool.FunctionTool, bool) {
	for _, t := range a.tools {
		if t.Name == name {
			return t, true
		}
	}
	return tool.FunctionTool{}, false
}

// Middlewares returns the middleware chain wrapped around each run.
func (a *Agent) Middlewares() *middleware.MiddlewareChain {
	return a.middlewares
}

// ToolSchemas returns the tool definitions passed to the LLM.
func (a *Agent) ToolSchemas() []map[string]any {
	if len(a.tools) == 0 {
		return nil
	}
	schemas := make([]map[string]any, 0, len(a.tools))
	for _, t := range a.tools {
		schemas = append(schemas, t.ToJSONSchema())
	}
	return schemas
}

// Clone returns a copy of the agent with extra options applied.
func (a *Agent) Clone(opts ...Option) (*Agent, error) {
	base := []Option{
		WithName(a.name),
		WithInstructions(a.instructions),
		WithMaxTurns(a.maxTurns),
		WithLLM(a.llm),
		WithTools(a.tools...),
		WithMiddleware(a.middlewares.List()...),
	}
	return New(append(base, opts...)...)
}
