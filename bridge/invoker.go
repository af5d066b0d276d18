package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpxerrors "github.com/sweetpotato0/mcpx-agents/errors"
	"github.com/sweetpotato0/mcpx-agents/tool"
)

// LocalFunc implements a tool in-process. args are the decoded JSON
// arguments; the returned value is converted to text for the model.
type LocalFunc func(ctx context.Context, args map[string]any) (any, error)

// Invoker runs one tool call from raw JSON input. Failures are reported in
// the result, never as a panic.
type Invoker interface {
	Invoke(ctx context.Context, input string) tool.Result
}

type localInvoker struct {
	desc tool.Descriptor
	fn   LocalFunc
}

func (l localInvoker) Invoke(ctx context.Context, input string) (res tool.Result) {
	res.Tool = l.desc.Name

	args, err := parseArgs(input)
	if err != nil {
		res.Err = err
		return res
	}
	if err := tool.ValidateArgs(l.desc.InputSchema, args); err != nil {
		res.Err = err
		return res
	}

	defer func() {
		if p := recover(); p != nil {
			res.Output = ""
			res.Err = fmt.Errorf("panic: %v", p)
		}
	}()

	out, err := l.fn(ctx, args)
	if err != nil {
		res.Err = err
		return res
	}
	res.Output, res.Err = stringify(out)
	return res
}

type remoteInvoker struct {
	name     string
	provider Provider
}

func (r remoteInvoker) Invoke(ctx context.Context, input string) (res tool.Result) {
	res.Tool = r.name

	args, err := parseArgs(input)
	if err != nil {
		res.Err = err
		return res
	}

	defer func() {
		if p := recover(); p != nil {
			res.Output = ""
			res.Err = fmt.Errorf("panic: %v", p)
		}
	}()

	result, err := r.provider.CallTool(ctx, r.name, args)
	if err != nil {
		res.Err = err
		return res
	}
	if result != nil && result.IsError {
		detail, _ := result.FirstText()
		if detail == "" {
			detail = "tool reported an error"
		}
		res.Err = errors.New(detail)
		return res
	}

	res.Output, res.Err = result.FirstText()
	return res
}

// parseArgs decodes the tool input. Blank input and JSON null mean no
// arguments.
func parseArgs(input string) (map[string]any, error) {
	if strings.TrimSpace(input) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return nil, fmt.Errorf("%w: arguments are not a JSON object: %w", mcpxerrors.ErrInvalidInput, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func stringify(v any) (string, error) {
	switch out := v.(type) {
	case nil:
		return "", nil
	case string:
		return out, nil
	case []byte:
		return string(out), nil
	case fmt.Stringer:
		return out.String(), nil
	case error:
		return out.Error(), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(data), nil
}
