// Package prompt renders agent instructions from templates.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/sweetpotato0/mcpx-agents/tool"
)

// Vars are the values available to an instructions template.
type Vars struct {
	Name    string
	Profile string
	Tools   []tool.FunctionTool
}

// Catalog lists the tools as "- name: description" lines.
func (v Vars) Catalog() string {
	b := NewBuilder()
	for _, t := range v.Tools {
		if t.Description == "" {
			b.AddLine("- " + t.Name)
			continue
		}
		b.AddFormat("- %s: %s\n", t.Name, t.Description)
	}
	return strings.TrimSuffix(b.Build(), "\n")
}

// Template represents a prompt template with variables
type Template struct {
	Name     string
	Content  string
	template *template.Template
}

// NewTemplate creates a new prompt template
func NewTemplate(name, content string) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Template{
		Name:     name,
		Content:  content,
		template: tmpl,
	}, nil
}

// Render renders the template with the given data
func (t *Template) Render(data any) (string, error) {
	var buf strings.Builder
	if err := t.template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// Builder helps build complex prompts
type Builder struct {
	parts []string
}

// NewBuilder creates a new prompt builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Add adds a part to the prompt
func (b *Builder) Add(part string) *Builder {
	b.parts = append(b.parts, part)
	return b
}

// AddFormat adds a formatted part to the prompt
func (b *Builder) AddFormat(format string, args ...any) *Builder {
	b.parts = append(b.parts, fmt.Sprintf(format, args...))
	return b
}

// AddLine adds a part with a newline
func (b *Builder) AddLine(part string) *Builder {
	b.parts = append(b.parts, part+"\n")
	return b
}

// AddSection adds a section with title and content
func (b *Builder) AddSection(title, content string) *Builder {
	b.parts = append(b.parts, fmt.Sprintf("## %s\n%s\n", title, content))
	return b
}

// Build returns the final prompt string
func (b *Builder) Build() string {
	return strings.Join(b.parts, "")
}
