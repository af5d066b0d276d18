package bridge

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/mcpx-agents/config"
	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
	"github.com/sweetpotato0/mcpx-agents/tool/mcp"
)

// DefaultClient connects to the MCP server described by the environment:
// MCPX_PROFILES_FILE (with MCPX_PROFILE), else MCPX_ENDPOINT, else
// MCPX_COMMAND with MCPX_COMMAND_ARGS.
func DefaultClient(ctx context.Context, opts ...mcp.Option) (*mcp.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return ClientFromConfig(ctx, cfg.MCP, opts...)
}

// ClientFromConfig connects to the MCP server described by cfg.
func ClientFromConfig(ctx context.Context, cfg config.MCPConfig, opts ...mcp.Option) (*mcp.Client, error) {
	if err := config.ValidateMCPConfig(cfg.Endpoint, cfg.Command, cfg.ProfilesFile); err != nil {
		return nil, fmt.Errorf("%w: %w", mcpxerrors.ErrInvalidConfig, err)
	}
	if cfg.KeepAlive > 0 {
		opts = append([]mcp.Option{mcp.WithKeepAlive(cfg.KeepAlive)}, opts...)
	}

	server := mcp.Config{Endpoint: cfg.Endpoint, Command: cfg.Command, Args: cfg.Args}
	if cfg.Endpoint != "" {
		server.Command, server.Args = "", nil
	}

	if cfg.ProfilesFile == "" {
		return mcp.Dial(ctx, server, opts...)
	}

	set, err := config.LoadProfiles(cfg.ProfilesFile)
	if err != nil {
		return nil, err
	}
	initial, err := set.Initial(cfg.Profile)
	if err != nil {
		return nil, err
	}
	if !set.Profiles[initial].Server.IsZero() {
		return mcp.NewProfileClient(ctx, set.Profiles, initial, opts...)
	}

	// The initial profile only filters tools, so the server comes from the
	// endpoint or command settings.
	if server.IsZero() {
		return nil, fmt.Errorf("bridge: profile %q names no server and none is configured: %w", initial, mcpxerrors.ErrInvalidConfig)
	}
	client, err := mcp.Dial(ctx, server, opts...)
	if err != nil {
		return nil, err
	}
	client.AddProfiles(set.Profiles)
	if err := client.SetProfile(ctx, initial); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
