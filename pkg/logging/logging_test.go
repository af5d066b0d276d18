package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "json", "info")
	logger.Debug("hidden")
	logger.Info("hello", "key", "value")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if entry["msg"] != "hello" || entry["key"] != "value" || entry["service"] != "mcpx-agents" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNewTextLogger(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "text", "debug").Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestSetLoggerAndComponent(t *testing.T) {
	var buf bytes.Buffer
	previous := Logger()
	t.Cleanup(func() { SetLogger(previous) })

	SetLogger(New(&buf, "json", "info"))
	SetLogger(nil)
	WithComponent("bridge").Info("ready")

	if !strings.Contains(buf.String(), `"component":"bridge"`) {
		t.Errorf("expected component field, got %q", buf.String())
	}
}
