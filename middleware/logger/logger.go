package logger

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/mcpx-agents/middleware"
	"github.com/sweetpotato0/mcpx-agents/pkg/logging"
)

// RequestLogger logs incoming runs
type RequestLogger struct {
	logger *slog.Logger
}

// NewRequestLogger creates a request logging middleware. A nil logger uses
// the shared one.
func NewRequestLogger(logger *slog.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.WithComponent("middleware")
	}
	return &RequestLogger{logger: logger}
}

// Name returns the middleware name
func (m *RequestLogger) Name() string {
	return "RequestLogger"
}

// Execute logs the request
func (m *RequestLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	m.logger.InfoContext(ctx.Context(), "agent run started",
		"agent", ctx.Agent,
		"input", ctx.Input,
		"history", len(ctx.Messages),
	)
	return next(ctx)
}

// ResponseLogger logs the outcome of runs
type ResponseLogger struct {
	logger *slog.Logger
}

// NewResponseLogger creates a response logging middleware. A nil logger uses
// the shared one.
func NewResponseLogger(logger *slog.Logger) *ResponseLogger {
	if logger == nil {
		logger = logging.WithComponent("middleware")
	}
	return &ResponseLogger{logger: logger}
}

// Name returns the middleware name
func (m *ResponseLogger) Name() string {
	return "ResponseLogger"
}

// Execute logs the response
func (m *ResponseLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	start := time.Now()
	err := next(ctx)
	elapsed := time.Since(start)
	switch {
	case err != nil:
		m.logger.ErrorContext(ctx.Context(), "agent run failed", "agent", ctx.Agent, "duration", elapsed, "error", err)
	case ctx.Response != nil:
		m.logger.InfoContext(ctx.Context(), "agent run finished", "agent", ctx.Agent, "duration", elapsed, "output", ctx.Response.Text())
	}
	return err
}
