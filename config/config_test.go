package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MCPX_LLM_PROVIDER", "claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("MCPX_IGNORE_TOOLS", "delete,drop")
	t.Setenv("MCPX_KEEPALIVE", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.App.MaxTurns != 10 || cfg.History.Backend != "memory" || cfg.History.PostgresTable != "conversation_items" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.LLM.APIKey() != "sk-ant" {
		t.Errorf("APIKey() = %q", cfg.LLM.APIKey())
	}
	if cfg.LLM.ModelOrDefault() == "" {
		t.Errorf("expected a default model")
	}
	if len(cfg.MCP.IgnoreTools) != 2 || cfg.MCP.IgnoreTools[1] != "drop" {
		t.Errorf("IgnoreTools = %v", cfg.MCP.IgnoreTools)
	}
	if cfg.MCP.KeepAlive != 5*time.Second {
		t.Errorf("KeepAlive = %v", cfg.MCP.KeepAlive)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("MCPX_LLM_PROVIDER", "cohere")
	t.Setenv("MCPX_HISTORY", "sqlite")

	_, err := Load()
	if !errors.Is(err, mcpxerrors.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("MCPX_TEST_ONLY_MODEL=from-file\nMCPX_LLM_MODEL=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("MCPX_TEST_ONLY_MODEL")
		os.Unsetenv("MCPX_LLM_MODEL")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.Model != "from-file" {
		t.Errorf("Model = %q, want from-file", cfg.LLM.Model)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Errorf("expected error for missing env file")
	}
}

func TestHistoryValidateBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     HistoryConfig
		wantErr bool
	}{
		{name: "memory", cfg: HistoryConfig{Backend: "memory"}},
		{name: "redis ok", cfg: HistoryConfig{Backend: "redis", RedisAddr: "localhost:6379", RedisPrefix: "p:"}},
		{name: "redis bad db", cfg: HistoryConfig{Backend: "redis", RedisAddr: "localhost:6379", RedisDB: 20, RedisPrefix: "p:"}, wantErr: true},
		{name: "postgres missing dsn", cfg: HistoryConfig{Backend: "postgres", PostgresTable: "t"}, wantErr: true},
		{name: "mongo ok", cfg: HistoryConfig{Backend: "mongo", MongoURI: "mongodb://localhost", MongoDatabase: "d", MongoCollection: "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateBackend()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBackend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, mcpxerrors.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
