package gemini

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/sweetpotato0/mcpx-agents/agent"
	"github.com/sweetpotato0/mcpx-agents/contrib/provider"
	"github.com/sweetpotato0/mcpx-agents/message"
	"github.com/sweetpotato0/mcpx-agents/tool"
	"google.golang.org/api/option"
)

const defaultModel = "gemini-2.0-flash"

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       defaultModel,
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Provider talks to the Gemini API through the genai client.
type Provider struct {
	config *Config
	client *genai.Client
}

// New creates a new Gemini provider.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil || config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key not configured")
	}
	if config.Model == "" {
		config.Model = defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Provider{config: config, client: client}, nil
}

// Generate implements agent.LLMClient.
func (p *Provider) Generate(ctx context.Context, req *agent.GenerateRequest) (*message.Message, error) {
	if req == nil {
		return nil, fmt.Errorf("generate request cannot be nil")
	}

	system, contents, err := toContents(req.Messages)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}

	model := p.client.GenerativeModel(p.config.Model)
	if p.config.Temperature > 0 {
		model.SetTemperature(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		model.SetMaxOutputTokens(p.config.MaxTokens)
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	decls, err := toDeclarations(req.Tools)
	if err != nil {
		return nil, err
	}
	if len(decls) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	cs := model.StartChat()
	cs.History = contents[:len(contents)-1]
	resp, err := cs.SendMessage(ctx, contents[len(contents)-1].Parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	return fromResponse(resp)
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// SetTemperature updates the temperature setting
func (p *Provider) SetTemperature(temp float64) {
	p.config.Temperature = float32(temp)
}

// SetMaxTokens updates the max tokens setting
func (p *Provider) SetMaxTokens(max int64) {
	p.config.MaxTokens = int32(max)
}

// SetModel updates the model
func (p *Provider) SetModel(model string) {
	p.config.Model = model
}

// toContents converts history to Gemini contents. Tool results following the
// same model turn are merged into one user content.
func toContents(msgs []*message.Message) (string, []*genai.Content, error) {
	var system []string
	var contents []*genai.Content

	for _, msg := range msgs {
		switch msg.Role {
		case message.RoleSystem:
			system = append(system, msg.Content)
		case message.RoleUser:
			contents = append(contents, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		case message.RoleAssistant:
			c := &genai.Content{Role: "model"}
			if msg.Content != "" {
				c.Parts = append(c.Parts, genai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args, err := provider.Arguments(tc.Arguments)
				if err != nil {
					return "", nil, err
				}
				c.Parts = append(c.Parts, genai.FunctionCall{Name: tc.Name, Args: args})
			}
			if len(c.Parts) > 0 {
				contents = append(contents, c)
			}
		case message.RoleTool:
			part := genai.FunctionResponse{
				Name:     msg.ToolName,
				Response: map[string]any{"result": msg.Content},
			}
			if n := len(contents); n > 0 && isFunctionResponses(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: "user", Parts: []genai.Part{part}})
		}
	}
	return strings.Join(system, "\n"), contents, nil
}

func isFunctionResponses(c *genai.Content) bool {
	if c.Role != "user" || len(c.Parts) == 0 {
		return false
	}
	for _, part := range c.Parts {
		switch part.(type) {
		case genai.FunctionResponse, *genai.FunctionResponse:
		default:
			return false
		}
	}
	return true
}

func toDeclarations(schemas []map[string]any) ([]*genai.FunctionDeclaration, error) {
	fns, err := provider.Functions(schemas)
	if err != nil {
		return nil, err
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(fns))
	for _, fn := range fns {
		decl := &genai.FunctionDeclaration{Name: fn.Name, Description: fn.Description}
		if props, _ := fn.Parameters["properties"].(map[string]any); len(props) > 0 {
			decl.Parameters = toSchema(fn.Parameters)
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// toSchema converts a JSON schema fragment. Unknown types fall back to string.
func toSchema(raw map[string]any) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeString}

	typ, _ := raw["type"].(string)
	kind, err := tool.KindOf(typ)
	if err == nil {
		switch kind {
		case reflect.Bool:
			schema.Type = genai.TypeBoolean
		case reflect.Float64:
			schema.Type = genai.TypeNumber
		case reflect.Int64:
			schema.Type = genai.TypeInteger
		case reflect.Map:
			schema.Type = genai.TypeObject
		case reflect.Slice:
			schema.Type = genai.TypeArray
		}
	}

	schema.Description, _ = raw["description"].(string)
	schema.Enum = stringList(raw["enum"])
	if items, ok := raw["items"].(map[string]any); ok {
		schema.Items = toSchema(items)
	}
	if props, ok := raw["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if m, ok := prop.(map[string]any); ok {
				schema.Properties[name] = toSchema(m)
			}
		}
	}
	schema.Required = stringList(raw["required"])
	return schema
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// fromResponse builds the assistant message. Gemini has no call ids, so each
// function call gets a fresh one.
func fromResponse(resp *genai.GenerateContentResponse) (*message.Message, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates in response")
	}

	var text strings.Builder
	var calls []message.ToolCall
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			text.WriteString(string(v))
		case genai.FunctionCall:
			call, err := toToolCall(v)
			if err != nil {
				return nil, err
			}
			calls = append(calls, call)
		case *genai.FunctionCall:
			call, err := toToolCall(*v)
			if err != nil {
				return nil, err
			}
			calls = append(calls, call)
		}
	}

	msg := message.NewMessage(message.RoleAssistant, text.String())
	msg.ToolCalls = calls
	return msg, nil
}

func toToolCall(fc genai.FunctionCall) (message.ToolCall, error) {
	args, err := provider.EncodeArguments(fc.Args)
	if err != nil {
		return message.ToolCall{}, err
	}
	return message.ToolCall{
		ID:        "call_" + uuid.NewString(),
		Name:      fc.Name,
		Arguments: args,
	}, nil
}
