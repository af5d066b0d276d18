package prompt

import (
	"testing"

	"github.com/sweetpotato0/mcpx-agents/tool"
)

func TestTemplateRender(t *testing.T) {
	tmpl, err := NewTemplate("instructions", "You are {{.Name}} ({{.Profile}}).\nTools:\n{{.Catalog}}")
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}

	got, err := tmpl.Render(Vars{
		Name:    "helper",
		Profile: "p1",
		Tools: []tool.FunctionTool{
			{Name: "echo", Description: "echo a message"},
			{Name: "ping"},
		},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "You are helper (p1).\nTools:\n- echo: echo a message\n- ping"
	if got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
}

func TestTemplateErrors(t *testing.T) {
	if _, err := NewTemplate("bad", "{{.Name"); err == nil {
		t.Fatal("expected parse error")
	}

	tmpl, err := NewTemplate("missing", "{{.Unknown}}")
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	if _, err := tmpl.Render(Vars{}); err == nil {
		t.Fatal("expected render error for unknown field")
	}
}

func TestBuilder(t *testing.T) {
	got := NewBuilder().
		Add("a").
		AddLine("b").
		AddFormat("%d", 3).
		AddSection("Title", "body").
		Build()
	if want := "ab\n3## Title\nbody\n"; got != want {
		t.Fatalf("Build = %q, want %q", got, want)
	}
}
