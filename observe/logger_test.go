package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func parseLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerLevelFiltering(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Debug(ctx, "debug msg")
	logger.Info(ctx, "info msg")
	logger.Warn(ctx, "warn msg")
	logger.Error(ctx, "error msg")

	entries := parseLogLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at warn level, got %d", len(entries))
	}
	if entries[0]["level"] != "warn" || entries[1]["level"] != "error" {
		t.Errorf("unexpected levels: %v, %v", entries[0]["level"], entries[1]["level"])
	}
}

func TestLoggerFields(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(ctx, "cache miss",
		Field{Key: "key", Value: "qc:op:field:abc"},
		Field{Key: "tier", Value: "memory"},
	)

	entries := parseLogLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["msg"] != "cache miss" {
		t.Errorf("unexpected msg %v", entry["msg"])
	}
	if entry["key"] != "qc:op:field:abc" || entry["tier"] != "memory" {
		t.Errorf("fields not carried through: %v", entry)
	}
	if entry["timestamp"] == nil {
		t.Error("expected timestamp")
	}
}

func TestLoggerRedaction(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(ctx, "remote connect",
		Field{Key: "password", Value: "hunter2"},
		Field{Key: "value", Value: "sensitive payload"},
		Field{Key: "host", Value: "cache.internal"},
	)

	entry := parseLogLines(t, &buf)[0]
	if entry["password"] != "[REDACTED]" {
		t.Errorf("expected password redacted, got %v", entry["password"])
	}
	if entry["value"] != "[REDACTED]" {
		t.Errorf("expected value redacted, got %v", entry["value"])
	}
	if entry["host"] != "cache.internal" {
		t.Errorf("expected host untouched, got %v", entry["host"])
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Error("secret leaked into log output")
	}
}

func TestLoggerWithComponent(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithComponent("cache")

	logger.Info(ctx, "hello")

	entry := parseLogLines(t, &buf)[0]
	if entry["component"] != "cache" {
		t.Errorf("expected component cache, got %v", entry["component"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLogLevel(tc.input); got != tc.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestLogLevelString(t *testing.T) {
	if LevelDebug.String() != "debug" || LevelError.String() != "error" {
		t.Error("unexpected level strings")
	}
	if LogLevel(42).String() != "info" {
		t.Error("expected unknown level to print as info")
	}
}

func TestNopLogger(t *testing.T) {
	ctx := context.Background()
	logger := NopLogger()

	// Must not panic, and WithComponent must stay a no-op.
	logger.Info(ctx, "msg", Field{Key: "k", Value: "v"})
	logger.WithComponent("cache").Error(ctx, "msg")
}
