package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/sweetpotato0/mcpx-agents/agent"
	"github.com/sweetpotato0/mcpx-agents/contrib/provider"
	"github.com/sweetpotato0/mcpx-agents/message"
)

// Config holds Claude provider configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Claude configuration
func DefaultConfig(apiKey, baseURL string) *Config {
	return &Config{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

// Provider talks to the Anthropic Messages API.
type Provider struct {
	config *Config
	client anthropic.Client
}

// New creates a new Claude provider using official SDK
func New(config *Config) *Provider {
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5-20250929"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}

	options := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithAuthToken(""),
	}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		config: config,
		client: anthropic.NewClient(options...),
	}
}

// Generate implements agent.LLMClient.
func (p *Provider) Generate(ctx context.Context, req *agent.GenerateRequest) (*message.Message, error) {
	if req == nil {
		return nil, fmt.Errorf("generate request cannot be nil")
	}

	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	apiMessage, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API error: %w", err)
	}

	var text strings.Builder
	var toolCalls []message.ToolCall
	for _, content := range apiMessage.Content {
		switch content.Type {
		case "text":
			text.WriteString(content.Text)
		case "tool_use":
			args := string(content.Input)
			if args == "" || args == "null" {
				args = "{}"
			}
			toolCalls = append(toolCalls, message.ToolCall{
				ID:        content.ID,
				Name:      content.Name,
				Arguments: args,
			})
		}
	}

	msg := message.NewMessage(message.RoleAssistant, text.String())
	msg.ToolCalls = toolCalls
	return msg, nil
}

func (p *Provider) buildParams(req *agent.GenerateRequest) (anthropic.MessageNewParams, error) {
	var systemPrompts []string
	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case message.RoleSystem:
			systemPrompts = append(systemPrompts, msg.Content)
		case message.RoleUser:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case message.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args, err := provider.Arguments(tc.Arguments)
				if err != nil {
					return anthropic.MessageNewParams{}, err
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			msgs = append(msgs, anthropic.NewAssistantMessage(blocks...))
		case message.RoleTool:
			// Results of one assistant turn share a single user message.
			block := anthropic.NewToolResultBlock(msg.ToolID, msg.Content, false)
			if n := len(msgs); n > 0 && msgs[n-1].Role == anthropic.MessageParamRoleUser && isToolResult(msgs[n-1]) {
				msgs[n-1].Content = append(msgs[n-1].Content, block)
				continue
			}
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		Messages:  msgs,
		MaxTokens: p.config.MaxTokens,
	}
	if len(systemPrompts) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(systemPrompts, "\n")}}
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}

	fns, err := provider.Functions(req.Tools)
	if err != nil {
		return params, err
	}
	for _, fn := range fns {
		schema := anthropic.ToolInputSchemaParam{Properties: fn.Parameters["properties"]}
		if required := requiredFields(fn.Parameters["required"]); len(required) > 0 {
			schema.Required = required
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        fn.Name,
				Description: anthropic.String(fn.Description),
				InputSchema: schema,
			},
		})
	}
	return params, nil
}

func isToolResult(m anthropic.MessageParam) bool {
	for _, block := range m.Content {
		if block.OfToolResult == nil {
			return false
		}
	}
	return len(m.Content) > 0
}

func requiredFields(v any) []string {
	switch r := v.(type) {
	case []string:
		return r
	case []any:
		out := make([]string, 0, len(r))
		for _, item := range r {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// SetTemperature updates the temperature setting
func (p *Provider) SetTemperature(temp float64) {
	p.config.Temperature = temp
}

// SetMaxTokens updates the max tokens setting
func (p *Provider) SetMaxTokens(max int64) {
	p.config.MaxTokens = max
}

// SetModel updates the model
func (p *Provider) SetModel(model string) {
	p.config.Model = model
}
