package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
	"github.com/sweetpotato0/mcpx-agents/pkg/logging"
)

// ErrClientClosed is returned when the MCP client has been closed.
var ErrClientClosed = fmt.Errorf("mcp: %w", mcpxerrors.ErrClientClosed)

// Option configures optional MCP client behaviour.
type Option func(*clientConfig)

type clientConfig struct {
	implementation    sdkmcp.Implementation
	logger            *slog.Logger
	args              []string
	env               []string
	dir               string
	keepAlive         time.Duration
	terminateTimeout  time.Duration
	httpClient        *http.Client
	streamableRetries *int
	dialer            Dialer
}

// Dialer builds the transport for a server configuration. It replaces the
// built-in stdio and streamable transports.
type Dialer func(cfg Config) (sdkmcp.Transport, error)

// WithDialer overrides how server configurations become transports.
func WithDialer(d Dialer) Option {
	return func(cfg *clientConfig) {
		cfg.dialer = d
	}
}

// WithClientInfo sets the client metadata advertised to the MCP server.
func WithClientInfo(info ClientInfo) Option {
	return func(cfg *clientConfig) {
		if info.Name != "" {
			cfg.implementation.Name = info.Name
		}
		if info.Title != "" {
			cfg.implementation.Title = info.Title
		}
		if info.Version != "" {
			cfg.implementation.Version = info.Version
		}
	}
}

// WithLogger configures logging for the MCP client.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithCommandArgs configures additional arguments when launching an stdio MCP server.
func WithCommandArgs(args ...string) Option {
	return func(cfg *clientConfig) {
		cfg.args = append(cfg.args, args...)
	}
}

// WithCommandEnv appends environment variables when launching an stdio MCP server.
func WithCommandEnv(env ...string) Option {
	return func(cfg *clientConfig) {
		cfg.env = append(cfg.env, env...)
	}
}

// WithCommandDir sets the working directory for the stdio MCP server process.
func WithCommandDir(dir string) Option {
	return func(cfg *clientConfig) {
		cfg.dir = dir
	}
}

// WithKeepAlive configures periodic ping requests to keep the session healthy.
func WithKeepAlive(interval time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.keepAlive = interval
	}
}

// WithTerminateTimeout sets how long to wait for graceful server shutdown before sending SIGTERM.
func WithTerminateTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.terminateTimeout = d
	}
}

// WithHTTPClient supplies a custom HTTP client for streamable transports.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = client
	}
}

// WithStreamableMaxRetries overrides the reconnect retry count of the
// streamable HTTP transport.
func WithStreamableMaxRetries(retries int) Option {
	return func(cfg *clientConfig) {
		cfg.streamableRetries = &retries
	}
}

// ClientInfo describes the client metadata sent to the MCP server.
type ClientInfo struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Version string `json:"version"`
}

// ServerInfo contains information about the connected MCP server.
type ServerInfo struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Version string `json:"version"`
}

// InitializeResult captures the server response during MCP initialization.
type InitializeResult struct {
	ProtocolVersion string
	Capabilities    map[string]any
	ServerInfo      ServerInfo
	Instructions    string
}

// Client wraps the official MCP Go SDK client and session. It implements
// tool.Provider; profiles select which server it talks to and which of that
// server's tools are visible.
type Client struct {
	cfg    clientConfig
	logger *slog.Logger

	mu        sync.RWMutex
	sdkClient *sdkmcp.Client
	session   *sdkmcp.ClientSession
	server    Config
	profiles  map[string]ProfileConfig
	profile   string
	allow     map[string]struct{}

	toolsChanged chan struct{}
	done         chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func newClient(opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	client := &Client{
		cfg:          cfg,
		logger:       cfg.logger,
		toolsChanged: make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	clientOpts := &sdkmcp.ClientOptions{
		ToolListChangedHandler: func(context.Context, *sdkmcp.ToolListChangedRequest) {
			select {
			case client.toolsChanged <- struct{}{}:
			default:
			}
		},
		LoggingMessageHandler: func(_ context.Context, req *sdkmcp.LoggingMessageRequest) {
			if req != nil && req.Params != nil {
				client.logger.Info("mcp server log", "level", req.Params.Level, "data", req.Params.Data)
			}
		},
		KeepAlive: cfg.keepAlive,
	}
	client.sdkClient = sdkmcp.NewClient(&cfg.implementation, clientOpts)
	return client
}

// NewClient connects over an arbitrary SDK transport and performs the
// initialization handshake.
func NewClient(ctx context.Context, transport sdkmcp.Transport, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, errors.New("mcp: transport cannot be nil")
	}
	client := newClient(opts...)
	if err := client.attach(ctx, transport, Config{}); err != nil {
		return nil, err
	}
	return client, nil
}

// NewStdioClient launches an MCP server command using the stdio transport and performs
// the initialization handshake.
func NewStdioClient(ctx context.Context, command string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("mcp: command cannot be empty")
	}
	return Dial(ctx, Config{Transport: TransportCommand, Command: command}, opts...)
}

// NewStreamableClient connects to an MCP server over the streamable HTTP transport
// (SSE + HTTP POST) as defined by the MCP specification.
func NewStreamableClient(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("mcp: endpoint cannot be empty")
	}
	return Dial(ctx, Config{Transport: TransportStreamable, Endpoint: endpoint}, opts...)
}

// Dial connects to the server described by cfg.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	client := newClient(opts...)
	transport, err := client.transportFor(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.attach(ctx, transport, cfg.normalize()); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) transportFor(cfg Config) (sdkmcp.Transport, error) {
	cfg = cfg.normalize()
	if c.cfg.dialer != nil {
		return c.cfg.dialer(cfg)
	}
	switch cfg.Transport {
	case TransportStreamable:
		if strings.TrimSpace(cfg.Endpoint) == "" {
			return nil, errors.New("mcp: endpoint is required for streamable transport")
		}
		transport := &sdkmcp.StreamableClientTransport{
			Endpoint: cfg.Endpoint,
		}
		if c.cfg.httpClient != nil {
			transport.HTTPClient = c.cfg.httpClient
		}
		if c.cfg.streamableRetries != nil {
			transport.MaxRetries = *c.cfg.streamableRetries
		}
		return transport, nil
	case TransportCommand:
		if strings.TrimSpace(cfg.Command) == "" {
			return nil, errors.New("mcp: command is required for command transport")
		}
		args := append(append([]string(nil), cfg.Args...), c.cfg.args...)
		cmd := exec.Command(cfg.Command, args...)
		if c.cfg.dir != "" {
			cmd.Dir = c.cfg.dir
		}
		if len(c.cfg.env) > 0 {
			cmd.Env = append(os.Environ(), c.cfg.env...)
		}
		cmd.Stderr = logWriter{logger: c.logger}
		return &sdkmcp.CommandTransport{
			Command:           cmd,
			TerminateDuration: c.cfg.terminateTimeout,
		}, nil
	default:
		return nil, fmt.Errorf("mcp: unsupported transport %q", cfg.Transport)
	}
}

// attach connects a new session and makes it current. A previous session is
// closed after the swap.
func (c *Client) attach(ctx context.Context, transport sdkmcp.Transport, server Config) error {
	session, err := c.sdkClient.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("mcp: connect failed: %w", err)
	}

	c.mu.Lock()
	previous := c.session
	c.session = session
	c.server = server
	c.mu.Unlock()

	go c.monitorSession(session)

	if previous != nil {
		_ = previous.Close()
	}
	return nil
}

func (c *Client) currentSession() (*sdkmcp.ClientSession, error) {
	select {
	case <-c.done:
		return nil, ErrClientClosed
	default:
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil, ErrClientClosed
	}
	return c.session, nil
}

// Close terminates the MCP client and underlying transport.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		session := c.session
		c.session = nil
		c.mu.Unlock()
		if session != nil {
			c.closeErr = session.Close()
		}
		close(c.done)
	})
	return c.closeErr
}

// Done returns a channel that is closed when the client shuts down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ToolsChanged reports when the server indicates that the tool list has changed.
func (c *Client) ToolsChanged() <-chan struct{} {
	return c.toolsChanged
}

func (c *Client) monitorSession(session *sdkmcp.ClientSession) {
	err := session.Wait()

	c.mu.RLock()
	current := c.session == session
	c.mu.RUnlock()
	if !current {
		return
	}
	if err != nil && !errors.Is(err, sdkmcp.ErrConnectionClosed) {
		c.logger.Warn("mcp session ended with error", "error", err)
	}
	_ = c.Close()
}

func defaultConfig() clientConfig {
	return clientConfig{
		implementation: sdkmcp.Implementation{
			Name:    "mcpx-agents",
			Version: "0.1.0",
		},
		logger: logging.WithComponent("mcp"),
	}
}

type logWriter struct {
	logger *slog.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	if w.logger != nil {
		msg := strings.TrimSpace(string(p))
		if msg != "" {
			w.logger.Debug("mcp server stderr", "line", msg)
		}
	}
	return len(p), nil
}

// InitializeResult returns the negotiated initialization metadata, if available.
func (c *Client) InitializeResult() *InitializeResult {
	session, err := c.currentSession()
	if err != nil {
		return nil
	}
	return convertInitializeResult(session.InitializeResult())
}

func convertInitializeResult(res *sdkmcp.InitializeResult) *InitializeResult {
	if res == nil {
		return nil
	}

	capabilities := map[string]any{}
	if res.Capabilities != nil {
		if data, err := json.Marshal(res.Capabilities); err == nil {
			_ = json.Unmarshal(data, &capabilities)
		}
	}

	server := ServerInfo{}
	if res.ServerInfo != nil {
		server = ServerInfo{
			Name:    res.ServerInfo.Name,
			Title:   res.ServerInfo.Title,
			Version: res.ServerInfo.Version,
		}
	}

	return &InitializeResult{
		ProtocolVersion: res.ProtocolVersion,
		Capabilities:    capabilities,
		ServerInfo:      server,
		Instructions:    res.Instructions,
	}
}
