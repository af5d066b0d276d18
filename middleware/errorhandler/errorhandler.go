package errorhandler

import (
	"github.com/sweetpotato0/mcpx-agents/middleware"
)

// ErrorHandlerFunc handles errors. Returning nil suppresses the error.
type ErrorHandlerFunc func(ctx *middleware.Context, err error) error

// ErrorHandler handles errors in the middleware chain
type ErrorHandler struct {
	handler ErrorHandlerFunc
}

// NewErrorHandler creates an error handling middleware
func NewErrorHandler(handler ErrorHandlerFunc) *ErrorHandler {
	return &ErrorHandler{handler: handler}
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute handles errors from downstream middlewares and records the final
// outcome on the context.
func (m *ErrorHandler) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	if err != nil && m.handler != nil {
		err = m.handler(ctx, err)
	}
	ctx.Error = err
	return err
}
