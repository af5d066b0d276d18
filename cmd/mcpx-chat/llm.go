package main

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/mcpx-agents/agent"
	"github.com/sweetpotato0/mcpx-agents/config"
	"github.com/sweetpotato0/mcpx-agents/contrib/provider/claude"
	"github.com/sweetpotato0/mcpx-agents/contrib/provider/gemini"
	"github.com/sweetpotato0/mcpx-agents/contrib/provider/openai"
	"github.com/sweetpotato0/mcpx-agents/contrib/tokenizer/tiktoken"
	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
)

// newLLM builds the client of the configured provider. The returned func
// releases it.
func newLLM(ctx context.Context, cfg config.LLMConfig) (agent.LLMClient, func(), error) {
	model := cfg.ModelOrDefault()
	if err := config.ValidateLLMConfig(cfg.APIKey(), model, cfg.Temperature, cfg.MaxTokens); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", mcpxerrors.ErrInvalidConfig, cfg.Provider, err)
	}
	noop := func() {}

	switch cfg.Provider {
	case "claude":
		return claude.New(&claude.Config{
			APIKey:      cfg.ClaudeKey,
			Model:       model,
			MaxTokens:   int64(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		}), noop, nil
	case "gemini":
		p, err := gemini.New(ctx, &gemini.Config{
			APIKey:      cfg.GeminiKey,
			Model:       model,
			MaxTokens:   int32(cfg.MaxTokens),
			Temperature: float32(cfg.Temperature),
		})
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	case "openai", "":
		return openai.New(&openai.Config{
			APIKey:      cfg.OpenAIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       model,
			MaxTokens:   int64(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		}), noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown LLM provider %q", mcpxerrors.ErrInvalidConfig, cfg.Provider)
	}
}

// newCounter picks a tokenizer for budget trimming. Models tiktoken does not
// know fall back to cl100k_base.
func newCounter(cfg config.LLMConfig) (*tiktoken.Tokenizer, error) {
	if tk, err := tiktoken.NewTiktokenTokenizer(cfg.ModelOrDefault()); err == nil {
		return tk, nil
	}
	return tiktoken.NewTiktokenTokenizer("cl100k_base")
}
