package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mspops/predictgate/correlation"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("no log output")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	return entry
}

func TestLogger_BasicFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "hello", Field{Key: "attempt", Value: 2})

	entry := decodeLine(t, &buf)
	if entry["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("attempt = %v, want 2", entry["attempt"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Info(context.Background(), "dropped")
	if buf.Len() != 0 {
		t.Errorf("info line written at warn level: %q", buf.String())
	}

	logger.Warn(context.Background(), "kept")
	if buf.Len() == 0 {
		t.Error("warn line not written at warn level")
	}
}

func TestLogger_CorrelationFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	ctx := correlation.WithID(context.Background(), "req-123")
	logger.Debug(ctx, "traced")

	entry := decodeLine(t, &buf)
	if entry["correlation_id"] != "req-123" {
		t.Errorf("correlation_id = %v, want req-123", entry["correlation_id"])
	}
}

func TestLogger_WithRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	scoped := logger.WithRequest(RequestMeta{
		CorrelationID: "req-abc",
		Model:         "ticket-resolution",
		Operation:     "invoke",
	})
	scoped.Info(context.Background(), "scoped")

	entry := decodeLine(t, &buf)
	if entry["correlation_id"] != "req-abc" {
		t.Errorf("correlation_id = %v, want req-abc", entry["correlation_id"])
	}
	if entry["model"] != "ticket-resolution" {
		t.Errorf("model = %v, want ticket-resolution", entry["model"])
	}
	if entry["operation"] != "invoke" {
		t.Errorf("operation = %v, want invoke", entry["operation"])
	}
}

func TestLogger_ContextIDWinsOverBound(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithRequest(RequestMeta{CorrelationID: "req-old"})

	ctx := correlation.WithID(context.Background(), "req-new")
	logger.Info(ctx, "rescoped")

	entry := decodeLine(t, &buf)
	if entry["correlation_id"] != "req-new" {
		t.Errorf("correlation_id = %v, want req-new", entry["correlation_id"])
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "sensitive",
		Field{Key: "token", Value: "super-secret"},
		Field{Key: "payload", Value: map[string]any{"client": "acme"}},
		Field{Key: "endpoint", Value: "/predict"},
	)

	entry := decodeLine(t, &buf)
	if entry["token"] != "[REDACTED]" {
		t.Errorf("token = %v, want [REDACTED]", entry["token"])
	}
	if entry["payload"] != "[REDACTED]" {
		t.Errorf("payload = %v, want [REDACTED]", entry["payload"])
	}
	if entry["endpoint"] != "/predict" {
		t.Errorf("endpoint = %v, want /predict", entry["endpoint"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
