package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/sweetpotato0/mcpx-agents/agent"
	"github.com/sweetpotato0/mcpx-agents/bridge"
	"github.com/sweetpotato0/mcpx-agents/config"
	"github.com/sweetpotato0/mcpx-agents/message"
	"github.com/sweetpotato0/mcpx-agents/session/store"
	"github.com/sweetpotato0/mcpx-agents/tool"
)

func TestREPL(t *testing.T) {
	in := strings.NewReader("hello\n\n   \nfail\nsecond\nexit\nnever\n")
	var out bytes.Buffer
	var inputs []string

	err := repl(context.Background(), in, &out, func(_ context.Context, input string) (string, error) {
		inputs = append(inputs, input)
		if input == "fail" {
			return "", errors.New("boom")
		}
		return "echo " + input, nil
	}, nil)
	if err != nil {
		t.Fatalf("repl: %v", err)
	}

	if got := strings.Join(inputs, ","); got != "hello,fail,second" {
		t.Fatalf("inputs = %q", got)
	}
	text := out.String()
	for _, want := range []string{">> echo hello\n", "error: boom\n", ">> echo second\n"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "never") {
		t.Error("input after exit must not be processed")
	}
}

func TestREPLStopsAtEOF(t *testing.T) {
	calls := 0
	err := repl(context.Background(), strings.NewReader("one"), &bytes.Buffer{}, func(context.Context, string) (string, error) {
		calls++
		return "ok", nil
	}, nil)
	if err != nil || calls != 1 {
		t.Fatalf("repl = %v, calls = %d", err, calls)
	}
}

func TestREPLCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := repl(ctx, strings.NewReader("hello\n"), &bytes.Buffer{}, func(context.Context, string) (string, error) {
		t.Fatal("turn must not run after cancellation")
		return "", nil
	}, nil)
	if err != nil {
		t.Fatalf("repl: %v", err)
	}
}

func TestREPLExitMustMatchExactly(t *testing.T) {
	var inputs []string
	err := repl(context.Background(), strings.NewReader("  exit \nexit\nnever\n"), &bytes.Buffer{}, func(_ context.Context, input string) (string, error) {
		inputs = append(inputs, input)
		return "ok", nil
	}, nil)
	if err != nil {
		t.Fatalf("repl: %v", err)
	}
	if got := strings.Join(inputs, ","); got != "exit" {
		t.Fatalf("inputs = %q, want only the padded line", got)
	}
}

func TestREPLProfileCommand(t *testing.T) {
	in := strings.NewReader("/profile\n/profile weather\n/profile nowhere\n/profiles please\nexit\n")
	var out bytes.Buffer
	var inputs, switched []string

	current := "all"
	profile := func(_ context.Context, name string) (string, error) {
		switched = append(switched, name)
		if name == "nowhere" {
			return "", errors.New("unknown profile")
		}
		if name != "" {
			current = name
		}
		return current, nil
	}
	err := repl(context.Background(), in, &out, func(_ context.Context, input string) (string, error) {
		inputs = append(inputs, input)
		return "ok", nil
	}, profile)
	if err != nil {
		t.Fatalf("repl: %v", err)
	}

	if got := strings.Join(switched, ","); got != ",weather,nowhere" {
		t.Errorf("profile calls = %q", got)
	}
	if got := strings.Join(inputs, ","); got != "/profiles please" {
		t.Errorf("turn inputs = %q", got)
	}
	text := out.String()
	for _, want := range []string{"profile: all\n", "profile: weather\n", "error: unknown profile\n"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestREPLProfileCommandUnavailable(t *testing.T) {
	var out bytes.Buffer
	err := repl(context.Background(), strings.NewReader("/profile dev\n"), &out, func(context.Context, string) (string, error) {
		t.Fatal("profile command must not reach the agent")
		return "", nil
	}, nil)
	if err != nil {
		t.Fatalf("repl: %v", err)
	}
	if !strings.Contains(out.String(), "error: profile switching is not available") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := &config.Config{}
	cfg.History.Backend = "memory"
	cfg.MCP.IgnoreTools = []string{"a"}

	err := applyFlags(cfg, options{profile: "p2", ignore: "b, c,,", refresh: refreshOnChange})
	if err != nil {
		t.Fatalf("applyFlags: %v", err)
	}
	if cfg.MCP.Profile != "p2" {
		t.Errorf("profile = %q", cfg.MCP.Profile)
	}
	if got := strings.Join(cfg.MCP.IgnoreTools, ","); got != "a,b,c" {
		t.Errorf("ignore = %q", got)
	}

	if err := applyFlags(&config.Config{}, options{refresh: "sometimes", history: "memory"}); err == nil {
		t.Error("expected error for unknown refresh mode")
	}
	if err := applyFlags(&config.Config{}, options{refresh: refreshAlways, history: "postgres"}); err == nil {
		t.Error("expected error for postgres without dsn")
	}
}

func TestNewStoreDefaultsToMemory(t *testing.T) {
	s, closeStore, err := newStore(context.Background(), config.HistoryConfig{Backend: "memory", MaxItems: 5})
	if err != nil {
		t.Fatalf("newStore: %v", err)
	}
	defer closeStore()
	if _, ok := s.(*store.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}
}

func TestNewLLMRequiresKey(t *testing.T) {
	_, _, err := newLLM(context.Background(), config.LLMConfig{Provider: "openai", Temperature: 0.5, MaxTokens: 100})
	if err == nil {
		t.Fatal("expected error without API key")
	}

	llm, closeLLM, err := newLLM(context.Background(), config.LLMConfig{
		Provider: "claude", ClaudeKey: "k", Temperature: 0.5, MaxTokens: 100,
	})
	if err != nil || llm == nil {
		t.Fatalf("newLLM(claude) = %v, %v", llm, err)
	}
	closeLLM()
}

// profileProvider serves one tool per profile.
type profileProvider struct {
	profile string
}

func (p *profileProvider) Tools(context.Context) (map[string]tool.Descriptor, error) {
	name := p.profile + "_tool"
	return map[string]tool.Descriptor{name: {Name: name}}, nil
}

func (p *profileProvider) CallTool(context.Context, string, map[string]any) (*tool.CallResult, error) {
	return &tool.CallResult{}, nil
}

func (p *profileProvider) SetProfile(_ context.Context, profile string) error {
	if profile != "weather" && profile != "utility" {
		return fmt.Errorf("unknown profile %q", profile)
	}
	p.profile = profile
	return nil
}

func (p *profileProvider) Profile() string { return p.profile }

type quietLLM struct{}

func (quietLLM) Generate(context.Context, *agent.GenerateRequest) (*message.Message, error) {
	return message.NewMessage(message.RoleAssistant, "ok"), nil
}

func TestSwitchProfile(t *testing.T) {
	ctx := context.Background()
	b, err := bridge.New(ctx, bridge.WithName("chat"), bridge.WithLLM(quietLLM{}), bridge.WithClient(&profileProvider{profile: "weather"}))
	if err != nil {
		t.Fatalf("bridge.New: %v", err)
	}
	switchTo := switchProfile(b, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := switchTo(ctx, "")
	if err != nil || got != "weather [weather_tool]" {
		t.Fatalf("current profile = %q, %v", got, err)
	}
	got, err = switchTo(ctx, "utility")
	if err != nil || got != "utility [utility_tool]" {
		t.Fatalf("after switch = %q, %v", got, err)
	}
	if _, err := switchTo(ctx, "nowhere"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
	if got := b.Profile(); got != "utility" {
		t.Fatalf("Profile() = %q after failed switch", got)
	}
}
