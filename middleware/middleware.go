package middleware

import (
	"context"

	"github.com/sweetpotato0/mcpx-agents/message"
)

// Context represents the middleware execution context of one agent run
type Context struct {
	// Agent is the name of the agent being run
	Agent string

	// Input is the text of the latest user message in the history
	Input string

	// Messages is the history handed to the run
	Messages []*message.Message

	// Response is the final assistant message, set once the run completes
	Response *message.Message

	// Error from execution
	Error error

	// Metadata for passing data between middlewares
	Metadata map[string]any

	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context) *Context {
	return &Context{
		Metadata: make(map[string]any),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	if c.context == nil {
		return context.Background()
	}
	return c.context
}

// Middleware defines the interface for middleware components
// Middlewares can intercept and modify requests/responses in an agent execution pipeline
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic
	// It receives the current context and a next handler to continue the chain
	// Returning error will stop the middleware chain
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// MiddlewareChain represents a sequence of middleware to be executed
type MiddlewareChain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *MiddlewareChain {
	return &MiddlewareChain{
		middlewares: append([]Middleware(nil), middlewares...),
	}
}

// Add appends a middleware to the chain
func (c *MiddlewareChain) Add(m Middleware) *MiddlewareChain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// List returns a copy of the middlewares in execution order
func (c *MiddlewareChain) List() []Middleware {
	if c == nil {
		return nil
	}
	return append([]Middleware(nil), c.middlewares...)
}

// Len reports the number of middlewares in the chain
func (c *MiddlewareChain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.middlewares)
}

// Execute runs all middlewares in the chain
func (c *MiddlewareChain) Execute(ctx *Context, finalHandler Handler) error {
	if c == nil {
		return finalHandler(ctx)
	}
	return c.executeMiddleware(ctx, 0, finalHandler)
}

// executeMiddleware recursively executes middlewares in sequence
func (c *MiddlewareChain) executeMiddleware(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		return finalHandler(ctx)
	}

	nextHandler := func(ctx *Context) error {
		return c.executeMiddleware(ctx, index+1, finalHandler)
	}

	return c.middlewares[index].Execute(ctx, nextHandler)
}
