package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
)

// Config is the process configuration of the chat command.
type Config struct {
	App       AppConfig
	LLM       LLMConfig
	MCP       MCPConfig
	History   HistoryConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Name           string        `envconfig:"MCPX_APP_NAME" default:"mcpx-chat"`
	Env            string        `envconfig:"MCPX_ENV" default:"development"`
	LogLevel       string        `envconfig:"MCPX_LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"MCPX_LOG_FORMAT" default:"json"`
	Instructions   string        `envconfig:"MCPX_INSTRUCTIONS" default:"You are a helpful assistant. Use the available tools when they help answer the user."`
	MaxTurns       int           `envconfig:"MCPX_MAX_TURNS" default:"10"`
	MaxInputLength int           `envconfig:"MCPX_MAX_INPUT_LENGTH" default:"8000"`
	MaxConcurrency int           `envconfig:"MCPX_MAX_CONCURRENCY" default:"4"`
	RateLimit      int           `envconfig:"MCPX_RATE_LIMIT" default:"0"`
	RateWindow     time.Duration `envconfig:"MCPX_RATE_WINDOW" default:"1m"`
}

type LLMConfig struct {
	Provider      string  `envconfig:"MCPX_LLM_PROVIDER" default:"openai"`
	Model         string  `envconfig:"MCPX_LLM_MODEL"`
	Temperature   float64 `envconfig:"MCPX_LLM_TEMPERATURE" default:"0.7"`
	MaxTokens     int     `envconfig:"MCPX_LLM_MAX_TOKENS" default:"1024"`
	OpenAIKey     string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string  `envconfig:"OPENAI_BASE_URL"`
	ClaudeKey     string  `envconfig:"ANTHROPIC_API_KEY"`
	GeminiKey     string  `envconfig:"GEMINI_API_KEY"`
}

// APIKey returns the key of the selected provider.
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case "claude":
		return c.ClaudeKey
	case "gemini":
		return c.GeminiKey
	default:
		return c.OpenAIKey
	}
}

// ModelOrDefault returns the configured model or a sensible default for the
// selected provider.
func (c LLMConfig) ModelOrDefault() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case "claude":
		return "claude-3-5-sonnet-latest"
	case "gemini":
		return "gemini-1.5-flash"
	default:
		return "gpt-4o-mini"
	}
}

type MCPConfig struct {
	Endpoint     string        `envconfig:"MCPX_ENDPOINT"`
	Command      string        `envconfig:"MCPX_COMMAND"`
	Args         []string      `envconfig:"MCPX_COMMAND_ARGS"`
	ProfilesFile string        `envconfig:"MCPX_PROFILES_FILE"`
	Profile      string        `envconfig:"MCPX_PROFILE"`
	IgnoreTools  []string      `envconfig:"MCPX_IGNORE_TOOLS"`
	KeepAlive    time.Duration `envconfig:"MCPX_KEEPALIVE" default:"30s"`
}

type HistoryConfig struct {
	Backend         string        `envconfig:"MCPX_HISTORY" default:"memory"`
	MaxItems        int           `envconfig:"MCPX_HISTORY_MAX_ITEMS" default:"200"`
	TokenBudget     int           `envconfig:"MCPX_HISTORY_TOKEN_BUDGET" default:"0"`
	TTL             time.Duration `envconfig:"MCPX_HISTORY_TTL" default:"0"`
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix     string        `envconfig:"MCPX_REDIS_PREFIX" default:"mcpx:conversation:"`
	PostgresDSN     string        `envconfig:"POSTGRES_DSN"`
	PostgresTable   string        `envconfig:"MCPX_POSTGRES_TABLE" default:"conversation_items"`
	MongoURI        string        `envconfig:"MONGO_URI"`
	MongoDatabase   string        `envconfig:"MONGO_DATABASE" default:"mcpx"`
	MongoCollection string        `envconfig:"MONGO_COLLECTION" default:"conversation_items"`
}

type TelemetryConfig struct {
	Enabled     bool   `envconfig:"MCPX_TELEMETRY_ENABLED" default:"false"`
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"mcpx-agents"`
}

// Load reads configuration from environment variables.
// Without files it first tries the .env file of the working directory
// (useful for local development); explicit files must exist.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return nil, fmt.Errorf("config: load env files: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field rules envconfig cannot express. MCP
// settings are not required here since flags may still supply them.
func (c *Config) Validate() error {
	v := NewValidator()

	v.RequirePositive("MCPX_MAX_TURNS", c.App.MaxTurns)
	v.RequirePositive("MCPX_MAX_CONCURRENCY", c.App.MaxConcurrency)
	v.ValidateOneOf("MCPX_LOG_FORMAT", c.App.LogFormat, "json", "text")
	v.ValidateOneOf("MCPX_LLM_PROVIDER", c.LLM.Provider, "openai", "claude", "gemini")
	v.ValidateFloatRange("MCPX_LLM_TEMPERATURE", c.LLM.Temperature, 0.0, 2.0)
	v.RequirePositive("MCPX_LLM_MAX_TOKENS", c.LLM.MaxTokens)
	v.ValidateOneOf("MCPX_HISTORY", c.History.Backend, "memory", "redis", "postgres", "mongo")
	if c.App.RateLimit != 0 {
		if err := ValidateRateLimiterConfig(c.App.RateLimit); err != nil {
			v.Add("MCPX_RATE_LIMIT", err.Error())
		}
	}
	if c.History.TokenBudget < 0 {
		v.Add("MCPX_HISTORY_TOKEN_BUDGET", "value cannot be negative")
	}

	if err := v.Error(); err != nil {
		return fmt.Errorf("%w: %w", mcpxerrors.ErrInvalidConfig, err)
	}
	return nil
}

// ValidateBackend checks the settings of the selected history backend.
func (c HistoryConfig) ValidateBackend() error {
	var err error
	switch c.Backend {
	case "redis":
		err = ValidateRedisConfig(c.RedisAddr, c.RedisDB, c.RedisPrefix)
	case "postgres":
		err = ValidatePostgresConfig(c.PostgresDSN, c.PostgresTable)
	case "mongo":
		err = ValidateMongoDBConfig(c.MongoURI, c.MongoDatabase, c.MongoCollection)
	}
	if err != nil {
		return fmt.Errorf("%w: %s history: %w", mcpxerrors.ErrInvalidConfig, c.Backend, err)
	}
	return nil
}
