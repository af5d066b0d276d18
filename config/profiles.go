package config

import (
	"fmt"
	"os"
	"sort"

	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
	"github.com/sweetpotato0/mcpx-agents/tool/mcp"
	"gopkg.in/yaml.v3"
)

// ProfileSet is the content of a profiles file:
//
//	default: docs
//	profiles:
//	  docs:
//	    server:
//	      endpoint: http://localhost:8080/mcp
//	    tools: [search, fetch]
//	  local:
//	    server:
//	      command: ./mcp-server
//	      args: [--stdio]
type ProfileSet struct {
	Default  string                       `yaml:"default"`
	Profiles map[string]mcp.ProfileConfig `yaml:"profiles"`
}

// Names lists the profile names in sorted order.
func (s *ProfileSet) Names() []string {
	names := make([]string, 0, len(s.Profiles))
	for name := range s.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Initial picks the profile to start with: the requested one, the file's
// default, or the only profile when there is exactly one.
func (s *ProfileSet) Initial(requested string) (string, error) {
	name := requested
	if name == "" {
		name = s.Default
	}
	if name == "" && len(s.Profiles) == 1 {
		name = s.Names()[0]
	}
	if name == "" {
		return "", fmt.Errorf("config: no profile selected among %v: %w", s.Names(), mcpxerrors.ErrInvalidConfig)
	}
	if _, ok := s.Profiles[name]; !ok {
		return "", fmt.Errorf("config: profile %q: %w", name, mcpxerrors.ErrNotFound)
	}
	return name, nil
}

// LoadProfiles reads and validates a YAML profiles file.
func LoadProfiles(path string) (*ProfileSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read profiles: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes and validates profiles from YAML.
func ParseProfiles(data []byte) (*ProfileSet, error) {
	var set ProfileSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("config: parse profiles: %w", err)
	}

	v := NewValidator()
	if len(set.Profiles) == 0 {
		v.Add("profiles", "at least one profile is required")
	}
	for _, name := range set.Names() {
		server := set.Profiles[name].Server
		if server.Transport != "" {
			v.ValidateOneOf(name+".server.transport", string(server.Transport),
				string(mcp.TransportStreamable), string(mcp.TransportCommand))
		}
		if server.Endpoint != "" && server.Command != "" {
			v.Add(name+".server", "endpoint and command are mutually exclusive")
		}
	}
	if set.Default != "" {
		if _, ok := set.Profiles[set.Default]; !ok {
			v.Add("default", fmt.Sprintf("unknown profile %q", set.Default))
		}
	}
	if err := v.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", mcpxerrors.ErrInvalidConfig, err)
	}
	return &set, nil
}
