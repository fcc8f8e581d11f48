package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
)

func TestSetup(t *testing.T) {
	// Reset logger for testing
	logger = nil
	once = *new(sync.Once)

	Setup("DEBUG", "json")
	if logger == nil {
		t.Fatal("Logger should not be nil")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelForVerbosity(t *testing.T) {
	for n, want := range map[int]string{0: "WARN", 1: "INFO", 2: "DEBUG", 5: "DEBUG"} {
		if got := LevelForVerbosity(n); got != want {
			t.Errorf("LevelForVerbosity(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger = newLogger(&buf, "INFO", "json")

	WithComponent("supervisor").Info("hello")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if out["component"] != "supervisor" {
		t.Errorf("Expected component 'supervisor', got %v", out["component"])
	}
	if out["msg"] != "hello" {
		t.Errorf("Expected msg 'hello', got %v", out["msg"])
	}
}

func TestWithTask(t *testing.T) {
	var buf bytes.Buffer
	logger = newLogger(&buf, "INFO", "json")

	WithTask(7).Warn("slow")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if out["task"] != float64(7) {
		t.Errorf("Expected task 7, got %v", out["task"])
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger = newLogger(&buf, "DEBUG", "text")

	Debug("visible")
	if !bytes.Contains(buf.Bytes(), []byte("msg=visible")) {
		t.Errorf("text output = %q", buf.String())
	}
}
