package tool

import "context"

// Provider is a remote source of tools.
type Provider interface {
	// Tools returns the provider's current tool set keyed by name.
	Tools(ctx context.Context) (map[string]Descriptor, error)
	// CallTool invokes a remote tool with decoded parameters.
	CallTool(ctx context.Context, name string, params map[string]any) (*CallResult, error)
	// SetProfile switches which subset of tools is visible.
	SetProfile(ctx context.Context, profile string) error
}

// ChangeNotifier is implemented by providers that can announce tool list
// changes. Providers without live updates return nil.
type ChangeNotifier interface {
	ToolsChanged() <-chan struct{}
}

// ProfileReporter is implemented by providers that know their active profile.
type ProfileReporter interface {
	Profile() string
}

// DoneNotifier is implemented by providers that signal when they shut down.
type DoneNotifier interface {
	Done() <-chan struct{}
}
