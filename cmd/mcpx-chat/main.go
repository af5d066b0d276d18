// Command mcpx-chat is an interactive agent whose tools come from an MCP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/sweetpotato0/mcpx-agents/bridge"
	"github.com/sweetpotato0/mcpx-agents/config"
	"github.com/sweetpotato0/mcpx-agents/message"
	"github.com/sweetpotato0/mcpx-agents/middleware"
	"github.com/sweetpotato0/mcpx-agents/middleware/errorhandler"
	"github.com/sweetpotato0/mcpx-agents/middleware/limiter"
	"github.com/sweetpotato0/mcpx-agents/middleware/logger"
	"github.com/sweetpotato0/mcpx-agents/middleware/validator"
	"github.com/sweetpotato0/mcpx-agents/pkg/logging"
	"github.com/sweetpotato0/mcpx-agents/pkg/telemetry"
	"github.com/sweetpotato0/mcpx-agents/runner"
	"github.com/sweetpotato0/mcpx-agents/session"
	"github.com/sweetpotato0/mcpx-agents/tool"
	"github.com/sweetpotato0/mcpx-agents/tool/mcp"
)

const (
	refreshAlways   = "always"
	refreshOnChange = "on-change"
)

type options struct {
	envFile      string
	profile      string
	ignore       string
	refresh      string
	history      string
	conversation string
}

func main() {
	var opts options
	flag.StringVar(&opts.envFile, "env", "", "Optional .env file to load")
	flag.StringVar(&opts.profile, "profile", "", "Tool profile to start with")
	flag.StringVar(&opts.ignore, "ignore", "", "Comma separated tool names never exposed to the agent")
	flag.StringVar(&opts.refresh, "refresh", refreshAlways, "Tool refresh mode: always | on-change")
	flag.StringVar(&opts.history, "history", "", "History backend: memory | redis | postgres | mongo")
	flag.StringVar(&opts.conversation, "conversation", "", "Conversation id to resume")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "mcpx-chat:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	var files []string
	if opts.envFile != "" {
		files = append(files, opts.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, opts); err != nil {
		return err
	}

	logging.SetLogger(logging.New(os.Stderr, cfg.App.LogFormat, cfg.App.LogLevel))
	log := logging.WithComponent("cli")

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Disable:     !cfg.Telemetry.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	llm, closeLLM, err := newLLM(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	defer closeLLM()

	client, err := bridge.ClientFromConfig(ctx, cfg.MCP, mcp.WithLogger(logging.WithComponent("mcp")))
	if err != nil {
		return fmt.Errorf("connect MCP server: %w", err)
	}

	if err := config.ValidateRunnerConfig(cfg.App.MaxConcurrency); err != nil {
		return err
	}
	b, err := bridge.New(ctx,
		bridge.WithName(cfg.App.Name),
		bridge.WithInstructions(cfg.App.Instructions),
		bridge.WithLLM(llm),
		bridge.WithMaxTurns(cfg.App.MaxTurns),
		bridge.WithClient(client),
		bridge.WithIgnoreTools(cfg.MCP.IgnoreTools...),
		bridge.WithRunner(runner.New(cfg.App.MaxConcurrency)),
		bridge.WithMiddleware(middlewares(cfg.App, log)...),
		bridge.WithLogger(logging.WithComponent("bridge")),
	)
	if err != nil {
		client.Close()
		return err
	}
	defer b.Close()

	var runOpts []bridge.RunOption
	if opts.refresh == refreshOnChange {
		if b.Watch(ctx) {
			runOpts = append(runOpts, bridge.WithoutRefresh())
		} else {
			log.Warn("MCP server does not announce tool changes, refreshing before every run")
		}
	}

	store, closeStore, err := newStore(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer closeStore()

	turnRunner := session.TurnRunnerFunc(func(ctx context.Context, history []*message.Message) (*runner.Result, error) {
		return b.Run(ctx, history, runOpts...)
	})
	var convOpts []session.Option
	if cfg.History.TokenBudget > 0 {
		counter, err := newCounter(cfg.LLM)
		if err != nil {
			log.Warn("token budget disabled", "error", err)
		} else {
			convOpts = append(convOpts, session.WithTokenBudget(counter, cfg.History.TokenBudget))
		}
	}

	conversationID := opts.conversation
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	conv, err := session.NewConversation(conversationID, store, turnRunner, convOpts...)
	if err != nil {
		return err
	}
	defer conv.Close()

	log.Info("chat ready",
		"conversation", conv.ID(),
		"profile", b.Profile(),
		"tools", len(b.Tools()),
		"history", cfg.History.Backend,
	)

	turn := func(ctx context.Context, input string) (string, error) {
		res, err := conv.Turn(ctx, input)
		if err != nil {
			return "", err
		}
		return res.FinalOutput, nil
	}
	return repl(ctx, in, out, turn, switchProfile(b, log))
}

// switchProfile changes the bridge's tool profile from the REPL.
func switchProfile(b *bridge.Agent, log *slog.Logger) profileFunc {
	return func(ctx context.Context, name string) (string, error) {
		if name != "" {
			if err := b.SetProfile(ctx, name); err != nil {
				return "", err
			}
			log.Info("profile switched", "profile", name, "tools", len(b.Tools()))
		}
		return fmt.Sprintf("%s [%s]", b.Profile(), strings.Join(tool.Names(b.Tools()), ", ")), nil
	}
}

// applyFlags lets command-line flags take precedence over the environment.
func applyFlags(cfg *config.Config, opts options) error {
	if opts.profile != "" {
		cfg.MCP.Profile = opts.profile
	}
	for _, name := range strings.Split(opts.ignore, ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.MCP.IgnoreTools = append(cfg.MCP.IgnoreTools, name)
		}
	}
	if opts.history != "" {
		cfg.History.Backend = opts.history
	}

	v := config.NewValidator()
	v.ValidateOneOf("refresh", opts.refresh, refreshAlways, refreshOnChange)
	v.ValidateOneOf("history", cfg.History.Backend, "memory", "redis", "postgres", "mongo")
	if err := v.Error(); err != nil {
		return err
	}
	return cfg.History.ValidateBackend()
}

func middlewares(app config.AppConfig, log *slog.Logger) []middleware.Middleware {
	chain := []middleware.Middleware{
		errorhandler.NewErrorHandler(func(ctx *middleware.Context, err error) error {
			log.Error("agent run failed", "input_len", len(ctx.Input), "error", err)
			return err
		}),
		logger.NewRequestLogger(logging.WithComponent("middleware")),
		logger.NewResponseLogger(logging.WithComponent("middleware")),
		validator.NewInputValidator(validator.All(validator.NonBlank(), validator.MaxLength(app.MaxInputLength))),
	}
	if app.RateLimit > 0 {
		chain = append(chain, limiter.NewWindowLimiter(app.RateLimit, app.RateWindow))
	}
	return chain
}
