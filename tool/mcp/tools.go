package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sweetpotato0/mcpx-agents/tool"
)

// ListTools retrieves a single page of tools from the MCP server.
func (c *Client) ListTools(ctx context.Context, cursor string) (*sdkmcp.ListToolsResult, error) {
	session, err := c.currentSession()
	if err != nil {
		return nil, err
	}
	params := &sdkmcp.ListToolsParams{}
	if cursor != "" {
		params.Cursor = cursor
	}
	return session.ListTools(ctx, params)
}

// ListAllTools returns the full set of tools exposed by the MCP server,
// ignoring the active profile.
func (c *Client) ListAllTools(ctx context.Context) ([]*sdkmcp.Tool, error) {
	var (
		cursor string
		tools  []*sdkmcp.Tool
	)

	for {
		res, err := c.ListTools(ctx, cursor)
		if err != nil {
			return nil, err
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	return tools, nil
}

// Tools returns the descriptors visible under the active profile.
func (c *Client) Tools(ctx context.Context) (map[string]tool.Descriptor, error) {
	defs, err := c.ListAllTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: list tools: %w", err)
	}

	tools := make(map[string]tool.Descriptor, len(defs))
	for _, def := range defs {
		if def == nil || def.Name == "" || !c.visible(def.Name) {
			continue
		}

		description := def.Description
		if description == "" && def.Annotations != nil {
			description = def.Annotations.Title
		}

		tools[def.Name] = tool.Descriptor{
			Name:        def.Name,
			Description: description,
			InputSchema: toMap(def.InputSchema),
		}
	}

	return tools, nil
}

// CallTool invokes a remote MCP tool. Server-reported failures come back as a
// result with IsError set, transport failures as an error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*tool.CallResult, error) {
	session, err := c.currentSession()
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = make(map[string]any)
	}

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, err
	}

	return &tool.CallResult{
		Content: normalizeContent(result.Content),
		IsError: result.IsError,
	}, nil
}

func normalizeContent(content []sdkmcp.Content) []tool.Content {
	if len(content) == 0 {
		return nil
	}

	blocks := make([]tool.Content, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *sdkmcp.TextContent:
			blocks = append(blocks, tool.Content{Type: "text", Text: v.Text})
		default:
			data, err := c.MarshalJSON()
			if err != nil {
				continue
			}
			blocks = append(blocks, tool.Content{Type: contentType(data), Text: string(data)})
		}
	}

	return blocks
}

func contentType(data []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
		return "unknown"
	}
	return head.Type
}

func toMap(v any) map[string]any {
	switch value := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return value
	case json.RawMessage:
		return unmarshalMap(value)
	case []byte:
		return unmarshalMap(value)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil
		}
		return unmarshalMap(data)
	}
}

func unmarshalMap(data []byte) map[string]any {
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

var _ tool.Provider = (*Client)(nil)
var _ tool.ChangeNotifier = (*Client)(nil)
