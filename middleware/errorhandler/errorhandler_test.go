package errorhandler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sweetpotato0/mcpx-agents/middleware"
)

func TestErrorHandler(t *testing.T) {
	t.Run("catches error from next middleware", func(t *testing.T) {
		errorCaught := false
		handler := NewErrorHandler(func(_ *middleware.Context, err error) error {
			errorCaught = true
			return nil
		})

		ctx := &middleware.Context{}
		err := handler.Execute(ctx, func(c *middleware.Context) error {
			return errors.New("test error")
		})

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !errorCaught {
			t.Error("error was not caught")
		}
		if ctx.Error != nil {
			t.Errorf("suppressed error should not be recorded, got %v", ctx.Error)
		}
	})

	t.Run("passes through non-errors", func(t *testing.T) {
		handlerCalled := false
		handler := NewErrorHandler(func(_ *middleware.Context, err error) error {
			handlerCalled = true
			return err
		})

		err := handler.Execute(&middleware.Context{}, func(c *middleware.Context) error {
			return nil
		})

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if handlerCalled {
			t.Error("error handler should not be called for nil errors")
		}
	})

	t.Run("wraps errors and records them", func(t *testing.T) {
		base := errors.New("llm down")
		handler := NewErrorHandler(func(ctx *middleware.Context, err error) error {
			return fmt.Errorf("agent %s: %w", ctx.Agent, err)
		})

		ctx := &middleware.Context{Agent: "bot"}
		err := handler.Execute(ctx, func(c *middleware.Context) error { return base })
		if !errors.Is(err, base) {
			t.Errorf("expected wrapped error, got %v", err)
		}
		if ctx.Error != err {
			t.Errorf("expected ctx.Error to be recorded")
		}
	})

	t.Run("nil handler returns error unchanged", func(t *testing.T) {
		base := errors.New("boom")
		err := NewErrorHandler(nil).Execute(&middleware.Context{}, func(c *middleware.Context) error { return base })
		if err != base {
			t.Errorf("expected original error, got %v", err)
		}
	})
}
