package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown", "kind", "customers")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "shown" || entry["kind"] != "customers" {
		t.Errorf("entry = %v", entry)
	}
}

func TestWithFields_RequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := IntoContext(context.Background(), New(&buf, "info", "text"))
	ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-42")

	WithFields(ctx, "session_id", "s1").Info("commit done")

	out := buf.String()
	for _, want := range []string{"request_id=req-42", "session_id=s1", `msg="commit done"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %s", out, want)
		}
	}
}
