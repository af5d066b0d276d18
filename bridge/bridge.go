// Package bridge exposes the tools of a remote tool provider to an agent.
//
// The bridge keeps its tool list in sync with the provider, wraps each remote
// descriptor as a function tool and routes calls either to a local override or
// to the provider. Every invocation failure is turned into text for the model
// so that a single bad tool call never aborts a conversation.
package bridge

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/sweetpotato0/mcpx-agents/agent"
	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
	"github.com/sweetpotato0/mcpx-agents/message"
	"github.com/sweetpotato0/mcpx-agents/middleware"
	"github.com/sweetpotato0/mcpx-agents/pkg/logging"
	"github.com/sweetpotato0/mcpx-agents/pkg/telemetry"
	"github.com/sweetpotato0/mcpx-agents/prompt"
	"github.com/sweetpotato0/mcpx-agents/runner"
	"github.com/sweetpotato0/mcpx-agents/tool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Provider is the remote tool source the bridge talks to.
type Provider = tool.Provider

// Agent is an agent whose tools come from a Provider.
type Agent struct {
	provider  Provider
	ownClient bool
	runner    *runner.Runner
	agentOpts []agent.Option
	name      string
	template  *prompt.Template
	ignore    map[string]struct{}
	logger    *slog.Logger
	tracer    trace.Tracer

	// refreshMu serializes Refresh from listing through install, so a slow
	// refresh cannot overwrite the result of a later one.
	refreshMu sync.Mutex

	mu        sync.RWMutex
	tools     []tool.FunctionTool
	overrides map[string]struct{}
	profile   string
}

type options struct {
	agentOpts    []agent.Option
	instructions string
	tools        []tool.FunctionTool
	client       Provider
	ignore       []string
	runner       *runner.Runner
	logger       *slog.Logger
}

// Option configures the bridge
type Option func(*options)

// WithName sets the agent name
func WithName(name string) Option {
	return func(o *options) { o.agentOpts = append(o.agentOpts, agent.WithName(name)) }
}

// WithInstructions sets the agent's system prompt. Text containing "{{" is a
// template rendered before every run with prompt.Vars, so it can list the
// tools of the active profile.
func WithInstructions(instructions string) Option {
	return func(o *options) { o.instructions = instructions }
}

// WithLLM sets the model client
func WithLLM(llm agent.LLMClient) Option {
	return func(o *options) { o.agentOpts = append(o.agentOpts, agent.WithLLM(llm)) }
}

// WithMaxTurns limits LLM calls per run
func WithMaxTurns(n int) Option {
	return func(o *options) { o.agentOpts = append(o.agentOpts, agent.WithMaxTurns(n)) }
}

// WithMiddleware wraps every run in the given middlewares
func WithMiddleware(m ...middleware.Middleware) Option {
	return func(o *options) { o.agentOpts = append(o.agentOpts, agent.WithMiddleware(m...)) }
}

// WithTools adds tools implemented in-process. They take precedence over
// remote tools of the same name and survive every refresh.
func WithTools(tools ...tool.FunctionTool) Option {
	return func(o *options) { o.tools = append(o.tools, tools...) }
}

// WithClient sets the tool provider. Without it DefaultClient is used.
func WithClient(p Provider) Option {
	return func(o *options) { o.client = p }
}

// WithIgnoreTools names tools that are never registered.
func WithIgnoreTools(names ...string) Option {
	return func(o *options) { o.ignore = append(o.ignore, names...) }
}

// WithRunner shares a runner, and with it its concurrency limit.
func WithRunner(r *runner.Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds a bridge and loads the provider's tools. Invalid agent settings
// fail with an error wrapping errors.ErrInvalidConfig.
func New(ctx context.Context, opts ...Option) (*Agent, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var tmpl *prompt.Template
	if strings.Contains(o.instructions, "{{") {
		var err error
		if tmpl, err = prompt.NewTemplate("instructions", o.instructions); err != nil {
			return nil, fmt.Errorf("bridge: %w: %w", mcpxerrors.ErrInvalidConfig, err)
		}
	} else if o.instructions != "" {
		o.agentOpts = append(o.agentOpts, agent.WithInstructions(o.instructions))
	}

	base, err := agent.New(o.agentOpts...)
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}
	if tmpl != nil {
		if _, err := tmpl.Render(prompt.Vars{Name: base.Name()}); err != nil {
			return nil, fmt.Errorf("bridge: %w: %w", mcpxerrors.ErrInvalidConfig, err)
		}
	}

	b := &Agent{
		provider:  o.client,
		runner:    o.runner,
		agentOpts: o.agentOpts,
		name:      base.Name(),
		template:  tmpl,
		ignore:    make(map[string]struct{}, len(o.ignore)),
		logger:    o.logger,
		tracer:    telemetry.Tracer("github.com/sweetpotato0/mcpx-agents/bridge"),
		overrides: make(map[string]struct{}),
	}
	if b.logger == nil {
		b.logger = logging.WithComponent("bridge")
	}
	if b.runner == nil {
		b.runner = runner.New(1)
	}
	for _, name := range o.ignore {
		b.ignore[name] = struct{}{}
	}
	for _, t := range o.tools {
		if t.Name == "" {
			return nil, fmt.Errorf("bridge: tool without name: %w", mcpxerrors.ErrInvalidConfig)
		}
		if b.ignored(t.Name) {
			continue
		}
		b.put(t)
		b.overrides[t.Name] = struct{}{}
	}

	if b.provider == nil {
		client, err := DefaultClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("bridge: default client: %w", err)
		}
		b.provider = client
		b.ownClient = true
	}

	if err := b.Refresh(ctx); err != nil {
		if b.ownClient {
			_ = b.Close()
		}
		return nil, err
	}
	return b, nil
}

// Refresh rebuilds the remote part of the tool list from the provider.
// Local overrides are kept; remote tools are registered in name order.
func (b *Agent) Refresh(ctx context.Context) (err error) {
	ctx, span := b.tracer.Start(ctx, "bridge.refresh")
	defer func() { telemetry.End(span, err) }()

	b.refreshMu.Lock()
	defer b.refreshMu.Unlock()

	descs, err := b.provider.Tools(ctx)
	if err != nil {
		return fmt.Errorf("bridge: list tools: %w", err)
	}

	names := make([]string, 0, len(descs))
	for name := range descs {
		names = append(names, name)
	}
	sort.Strings(names)

	b.mu.Lock()
	defer b.mu.Unlock()

	kept := make([]tool.FunctionTool, 0, len(b.overrides)+len(names))
	for _, t := range b.tools {
		if _, ok := b.overrides[t.Name]; ok {
			kept = append(kept, t)
		}
	}
	b.tools = kept

	for _, name := range names {
		desc := descs[name]
		if desc.Name == "" {
			desc.Name = name
		}
		switch {
		case b.ignored(desc.Name):
			b.logger.Debug("ignoring remote tool", "tool", desc.Name)
		case b.isOverride(desc.Name):
			b.logger.Debug("remote tool shadowed by local override", "tool", desc.Name)
		default:
			b.put(b.wrap(desc, remoteInvoker{name: desc.Name, provider: b.provider}))
		}
	}

	span.SetAttributes(attribute.Int("bridge.tools", len(b.tools)))
	b.logger.Debug("tools refreshed", "remote", len(names), "registered", len(b.tools))
	return nil
}

// RegisterTool registers one descriptor. With fn the tool runs in-process and
// becomes a local override; without fn calls go to the provider. A tool of
// the same name is replaced. Ignored names are skipped.
func (b *Agent) RegisterTool(desc tool.Descriptor, fn LocalFunc) error {
	if desc.Name == "" {
		return fmt.Errorf("bridge: register tool: %w: empty name", mcpxerrors.ErrInvalidInput)
	}
	if b.ignored(desc.Name) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if fn != nil {
		b.put(b.wrap(desc, localInvoker{desc: desc, fn: fn}))
		b.overrides[desc.Name] = struct{}{}
		return nil
	}
	b.put(b.wrap(desc, remoteInvoker{name: desc.Name, provider: b.provider}))
	delete(b.overrides, desc.Name)
	return nil
}

// SetProfile switches the provider's profile and reloads the tools.
func (b *Agent) SetProfile(ctx context.Context, profile string) error {
	if err := b.provider.SetProfile(ctx, profile); err != nil {
		return fmt.Errorf("bridge: set profile %q: %w", profile, err)
	}
	b.mu.Lock()
	b.profile = profile
	b.mu.Unlock()
	return b.Refresh(ctx)
}

// Profile returns the last profile selected through SetProfile, or the
// provider's own profile when none was selected here.
func (b *Agent) Profile() string {
	b.mu.RLock()
	profile := b.profile
	b.mu.RUnlock()
	if profile != "" {
		return profile
	}
	if r, ok := b.provider.(tool.ProfileReporter); ok {
		return r.Profile()
	}
	return ""
}

// Tools returns a snapshot of the registered tools.
func (b *Agent) Tools() []tool.FunctionTool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return tool.Clone(b.tools)
}

// Provider returns the underlying tool provider.
func (b *Agent) Provider() Provider {
	return b.provider
}

type runOptions struct {
	refresh bool
}

// RunOption tunes a single run
type RunOption func(*runOptions)

// WithoutRefresh skips reloading tools before the run, for callers that keep
// the list fresh themselves.
func WithoutRefresh() RunOption {
	return func(o *runOptions) { o.refresh = false }
}

// Run refreshes the tools and runs the agent over history.
func (b *Agent) Run(ctx context.Context, history []*message.Message, opts ...RunOption) (res *runner.Result, err error) {
	ctx, span := b.tracer.Start(ctx, "bridge.run", trace.WithAttributes(attribute.Int("bridge.history", len(history))))
	defer func() { telemetry.End(span, err) }()

	ag, err := b.prepare(ctx, opts)
	if err != nil {
		return nil, err
	}
	return b.runner.Run(ctx, ag, history)
}

// RunStream is Run yielding items as they are produced.
func (b *Agent) RunStream(ctx context.Context, history []*message.Message, opts ...RunOption) iter.Seq2[*message.Message, error] {
	return func(yield func(*message.Message, error) bool) {
		ctx, span := b.tracer.Start(ctx, "bridge.run", trace.WithAttributes(attribute.Int("bridge.history", len(history))))
		var err error
		defer func() { telemetry.End(span, err) }()

		ag, err := b.prepare(ctx, opts)
		if err != nil {
			yield(nil, err)
			return
		}
		for msg, streamErr := range b.runner.RunStream(ctx, ag, history) {
			if streamErr != nil {
				err = streamErr
			}
			if !yield(msg, streamErr) {
				return
			}
		}
	}
}

func (b *Agent) prepare(ctx context.Context, opts []RunOption) (*agent.Agent, error) {
	ro := runOptions{refresh: true}
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.refresh {
		if err := b.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	tools := b.Tools()
	agentOpts := append(append([]agent.Option(nil), b.agentOpts...), agent.WithTools(tools...))
	if b.template != nil {
		instructions, err := b.template.Render(prompt.Vars{Name: b.name, Profile: b.Profile(), Tools: tools})
		if err != nil {
			return nil, fmt.Errorf("bridge: render instructions: %w", err)
		}
		agentOpts = append(agentOpts, agent.WithInstructions(instructions))
	}
	return agent.New(agentOpts...)
}

// Watch refreshes the tools whenever the provider announces a change, until
// ctx is done or the provider shuts down. It reports false when the provider
// cannot announce changes.
func (b *Agent) Watch(ctx context.Context) bool {
	notifier, ok := b.provider.(tool.ChangeNotifier)
	if !ok {
		return false
	}
	ch := notifier.ToolsChanged()
	if ch == nil {
		return false
	}

	var done <-chan struct{}
	if d, ok := b.provider.(tool.DoneNotifier); ok {
		done = d.Done()
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				if err := b.Refresh(ctx); err != nil {
					b.logger.Warn("refresh after tool change failed", "error", err)
				}
			}
		}
	}()
	return true
}

// Close releases the provider when it holds resources.
func (b *Agent) Close() error {
	if closer, ok := b.provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// wrap adapts an invoker to the function tool the runtime calls.
func (b *Agent) wrap(desc tool.Descriptor, inv Invoker) tool.FunctionTool {
	name := desc.Name
	return tool.FunctionTool{
		Name:        name,
		Description: desc.Description,
		InputSchema: desc.InputSchema,
		OnInvoke: func(ctx context.Context, input string) string {
			ctx, span := b.tracer.Start(ctx, "bridge.invoke_tool", trace.WithAttributes(attribute.String("tool.name", name)))
			res := inv.Invoke(ctx, input)
			telemetry.End(span, res.Err)
			if !res.OK() {
				b.logger.Warn("tool call failed", "tool", name, "error", res.Err)
			}
			return res.Text()
		},
	}
}

// put replaces the tool of the same name or appends. Callers hold mu.
func (b *Agent) put(t tool.FunctionTool) {
	for i := range b.tools {
		if b.tools[i].Name == t.Name {
			b.tools[i] = t
			return
		}
	}
	b.tools = append(b.tools, t)
}

func (b *Agent) ignored(name string) bool {
	_, ok := b.ignore[name]
	return ok
}

func (b *Agent) isOverride(name string) bool {
	_, ok := b.overrides[name]
	return ok
}
