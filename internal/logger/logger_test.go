package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Strob0t/patchpal/internal/config"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Logging{Level: "debug", Service: "test-svc"}
	l, closer := New(cfg, &buf)
	l.Debug("hello", "k", "v")
	closer.Close()

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["service"] != "test-svc" || rec["msg"] != "hello" || rec["k"] != "v" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNewAsync(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Logging{Level: "info", Service: "test-svc", Async: true}
	l, closer := New(cfg, &buf)
	for range 10 {
		l.Info("line")
	}
	closer.Close()

	if got := strings.Count(buf.String(), "\n"); got != 10 {
		t.Fatalf("expected 10 lines after close, got %d", got)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "patchpal.log")
	l, closer, err := OpenFile(config.Logging{Level: "info", Service: "svc", File: path})
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	l.Info("to file")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"to file"`) {
		t.Errorf("log file missing record: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLevel(tt.input).String()
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestVerbosityLevel(t *testing.T) {
	if got := VerbosityLevel(0, "warn"); got != "warn" {
		t.Errorf("expected fallback, got %s", got)
	}
	if got := VerbosityLevel(1, "warn"); got != "info" {
		t.Errorf("expected info, got %s", got)
	}
	if got := VerbosityLevel(3, "warn"); got != "debug" {
		t.Errorf("expected debug, got %s", got)
	}
}

func TestConnIDContext(t *testing.T) {
	ctx := context.Background()

	if got := ConnID(ctx); got != "" {
		t.Errorf("expected empty conn ID, got %q", got)
	}

	ctx = WithConnID(ctx, "conn-123")
	if got := ConnID(ctx); got != "conn-123" {
		t.Errorf("expected conn-123, got %q", got)
	}
	if FromContext(ctx) == nil {
		t.Error("expected logger")
	}
}
