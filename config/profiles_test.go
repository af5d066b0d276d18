package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
	"github.com/sweetpotato0/mcpx-agents/tool/mcp"
)

const sampleProfiles = `
default: docs
profiles:
  docs:
    server:
      endpoint: http://localhost:8080/mcp
    tools: [search, fetch]
  local:
    server:
      transport: command
      command: ./mcp-server
      args: [--stdio]
  all: {}
`

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(sampleProfiles), 0o600); err != nil {
		t.Fatal(err)
	}

	set, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles() error: %v", err)
	}
	if got := set.Names(); len(got) != 3 || got[0] != "all" || got[2] != "local" {
		t.Errorf("Names() = %v", got)
	}

	docs := set.Profiles["docs"]
	if docs.Server.Endpoint != "http://localhost:8080/mcp" || len(docs.Tools) != 2 {
		t.Errorf("unexpected docs profile: %+v", docs)
	}
	local := set.Profiles["local"]
	if local.Server.Transport != mcp.TransportCommand || local.Server.Args[0] != "--stdio" {
		t.Errorf("unexpected local profile: %+v", local)
	}
	if !set.Profiles["all"].Server.IsZero() {
		t.Errorf("expected empty server for all")
	}

	initial, err := set.Initial("")
	if err != nil || initial != "docs" {
		t.Errorf("Initial(\"\") = %q, %v", initial, err)
	}
	if initial, _ := set.Initial("local"); initial != "local" {
		t.Errorf("Initial(local) = %q", initial)
	}
	if _, err := set.Initial("nope"); !errors.Is(err, mcpxerrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestParseProfilesErrors(t *testing.T) {
	tests := map[string]string{
		"empty":           "profiles: {}",
		"unknown default": "default: x\nprofiles:\n  a: {}\n",
		"bad transport":   "profiles:\n  a:\n    server:\n      transport: pigeon\n      endpoint: x\n",
		"both sources":    "profiles:\n  a:\n    server:\n      endpoint: x\n      command: y\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseProfiles([]byte(doc)); !errors.Is(err, mcpxerrors.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := ParseProfiles([]byte("profiles: [")); err == nil {
		t.Errorf("expected YAML error")
	}
	if _, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected read error")
	}
}

func TestProfileSetInitialSingle(t *testing.T) {
	set := &ProfileSet{Profiles: map[string]mcp.ProfileConfig{"only": {}}}
	if name, err := set.Initial(""); err != nil || name != "only" {
		t.Errorf("Initial() = %q, %v", name, err)
	}

	set.Profiles["second"] = mcp.ProfileConfig{}
	if _, err := set.Initial(""); !errors.Is(err, mcpxerrors.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig when ambiguous, got %v", err)
	}
}
