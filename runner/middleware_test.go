package runner

import "github.com/sweetpotato0/mcpx-agents/middleware"

type recordFunc func(agentName, input, response string)

type recordingMiddleware struct {
	fn recordFunc
}

func recorder(fn recordFunc) *recordingMiddleware {
	return &recordingMiddleware{fn: fn}
}

func (m *recordingMiddleware) Name() string { return "recorder" }

func (m *recordingMiddleware) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	response := ""
	if ctx.Response != nil {
		response = ctx.Response.Text()
	}
	m.fn(ctx.Agent, ctx.Input, response)
	return err
}
