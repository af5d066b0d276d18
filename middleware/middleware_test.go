package middleware

import (
	"context"
	"errors"
	"testing"
)

type TestMiddleware struct {
	name  string
	err   error
	order *[]string
}

func (m *TestMiddleware) Name() string { return m.name }

func (m *TestMiddleware) Execute(ctx *Context, next Handler) error {
	*m.order = append(*m.order, m.name)
	if m.err != nil {
		return m.err
	}
	return next(ctx)
}

func TestMiddlewareChain(t *testing.T) {
	t.Run("empty chain executes final handler", func(t *testing.T) {
		chain := NewChain()
		executed := false

		err := chain.Execute(&Context{}, func(ctx *Context) error {
			executed = true
			return nil
		})

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !executed {
			t.Error("final handler was not executed")
		}
	})

	t.Run("nil chain executes final handler", func(t *testing.T) {
		var chain *MiddlewareChain
		executed := false
		if err := chain.Execute(&Context{}, func(*Context) error { executed = true; return nil }); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !executed {
			t.Error("final handler was not executed")
		}
		if chain.Len() != 0 || chain.List() != nil {
			t.Error("nil chain should be empty")
		}
	})

	t.Run("middleware chain executes in order", func(t *testing.T) {
		order := []string{}

		m1 := &TestMiddleware{name: "m1", order: &order}
		m2 := &TestMiddleware{name: "m2", order: &order}

		chain := NewChain(m1).Add(m2)
		err := chain.Execute(&Context{}, func(c *Context) error {
			order = append(order, "final")
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []string{"m1", "m2", "final"}
		if len(order) != len(expected) {
			t.Fatalf("expected %d steps, got %d", len(expected), len(order))
		}
		for i, e := range expected {
			if order[i] != e {
				t.Errorf("expected step %d to be %s, got %s", i, e, order[i])
			}
		}
		if chain.Len() != 2 || len(chain.List()) != 2 {
			t.Errorf("expected two middlewares in chain")
		}
	})

	t.Run("error stops chain execution", func(t *testing.T) {
		order := []string{}
		m1 := &TestMiddleware{name: "m1", err: errors.New("test error"), order: &order}
		m2 := &TestMiddleware{name: "m2", order: &order}

		chain := NewChain(m1, m2)
		finalCalled := false
		err := chain.Execute(&Context{}, func(c *Context) error {
			finalCalled = true
			return nil
		})

		if err == nil {
			t.Error("expected error from middleware")
		}
		if finalCalled {
			t.Error("final handler should not be called after middleware error")
		}
		if len(order) != 1 {
			t.Errorf("expected only m1 to run, got %v", order)
		}
	})
}

func TestNewContext(t *testing.T) {
	type key struct{}
	base := context.WithValue(context.Background(), key{}, "v")
	ctx := NewContext(base)
	if ctx.Context().Value(key{}) != "v" {
		t.Error("underlying context not preserved")
	}
	if ctx.Metadata == nil {
		t.Error("metadata should be initialised")
	}
	if (&Context{}).Context() == nil {
		t.Error("zero context should fall back to background")
	}
}
