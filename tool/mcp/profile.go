package mcp

import (
	"context"
	"fmt"
	"slices"
	"sort"

	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
)

// Transport enumerates the supported MCP transport types.
type Transport string

const (
	// TransportStreamable indicates the streamable HTTP (SSE) transport.
	TransportStreamable Transport = "streamable"
	// TransportCommand indicates the stdio/command transport.
	TransportCommand Transport = "command"
)

// Config describes how to connect to an MCP server.
type Config struct {
	// Transport selects how to connect to the MCP server. If empty, defaults to
	// command transport when Command is set, otherwise streamable HTTP.
	Transport Transport `yaml:"transport" json:"transport"`
	// Endpoint is required for streamable HTTP connections.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Command is required for command transport connections.
	Command string `yaml:"command" json:"command"`
	// Args are passed to Command.
	Args []string `yaml:"args" json:"args"`
}

func (c Config) normalize() Config {
	if c.Transport == "" {
		if c.Command != "" {
			c.Transport = TransportCommand
		} else if c.Endpoint != "" {
			c.Transport = TransportStreamable
		}
	}
	return c
}

// IsZero reports whether no server is configured.
func (c Config) IsZero() bool {
	return c.Transport == "" && c.Endpoint == "" && c.Command == "" && len(c.Args) == 0
}

func (c Config) equal(other Config) bool {
	a, b := c.normalize(), other.normalize()
	return a.Transport == b.Transport && a.Endpoint == b.Endpoint && a.Command == b.Command && slices.Equal(a.Args, b.Args)
}

// ProfileConfig is a named view onto a server's tools. A zero Server keeps the
// current connection; an empty Tools list exposes every tool.
type ProfileConfig struct {
	Server Config   `yaml:"server" json:"server"`
	Tools  []string `yaml:"tools" json:"tools"`
}

// NewProfileClient connects using the initial profile and registers the rest
// for SetProfile. The initial profile must name a server.
func NewProfileClient(ctx context.Context, profiles map[string]ProfileConfig, initial string, opts ...Option) (*Client, error) {
	pc, ok := profiles[initial]
	if !ok {
		return nil, fmt.Errorf("mcp: profile %q: %w", initial, mcpxerrors.ErrNotFound)
	}
	if pc.Server.IsZero() {
		return nil, fmt.Errorf("mcp: profile %q has no server: %w", initial, mcpxerrors.ErrInvalidConfig)
	}
	client, err := Dial(ctx, pc.Server, opts...)
	if err != nil {
		return nil, err
	}
	client.AddProfiles(profiles)
	client.applyProfile(initial, pc)
	return client, nil
}

// AddProfiles registers profiles that SetProfile can switch to.
func (c *Client) AddProfiles(profiles map[string]ProfileConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profiles == nil {
		c.profiles = make(map[string]ProfileConfig, len(profiles))
	}
	for name, pc := range profiles {
		c.profiles[name] = pc
	}
}

// Profiles lists the registered profile names in sorted order.
func (c *Client) Profiles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile returns the active profile name, empty when none was selected.
func (c *Client) Profile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

// SetProfile switches the visible tool subset. When the profile names a
// different server the client reconnects before returning.
func (c *Client) SetProfile(ctx context.Context, profile string) error {
	if _, err := c.currentSession(); err != nil {
		return err
	}

	c.mu.RLock()
	pc, ok := c.profiles[profile]
	server := c.server
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("mcp: profile %q: %w", profile, mcpxerrors.ErrNotFound)
	}

	if !pc.Server.IsZero() && !pc.Server.equal(server) {
		transport, err := c.transportFor(pc.Server)
		if err != nil {
			return err
		}
		if err := c.attach(ctx, transport, pc.Server.normalize()); err != nil {
			return fmt.Errorf("mcp: switch to profile %q: %w", profile, err)
		}
	}

	c.applyProfile(profile, pc)
	c.logger.Debug("mcp profile selected", "profile", profile, "tools", len(pc.Tools))
	return nil
}

func (c *Client) applyProfile(name string, pc ProfileConfig) {
	var allow map[string]struct{}
	if len(pc.Tools) > 0 {
		allow = make(map[string]struct{}, len(pc.Tools))
		for _, t := range pc.Tools {
			allow[t] = struct{}{}
		}
	}

	c.mu.Lock()
	c.profile = name
	c.allow = allow
	c.mu.Unlock()
}

func (c *Client) visible(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.allow == nil {
		return true
	}
	_, ok := c.allow[name]
	return ok
}
