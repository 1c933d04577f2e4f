package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pitabwire/sdui/internal/config"
	"github.com/pitabwire/sdui/model"
)

// newTestLogger creates a logger that writes JSON to a buffer for assertion.
func newTestLogger(buf *bytes.Buffer) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "msg",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(buf), zapcore.DebugLevel)
	return zap.New(core)
}

func TestNewLogger_levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"error", false, false},
		{"bogus", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := NewLogger(config.ObservabilityConfig{LogLevel: tt.level})
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			defer logger.Sync()

			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := logger.Core().Enabled(zapcore.InfoLevel); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
		})
	}
}

func TestWithLogger_and_LoggerFrom(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithLogger(context.Background(), logger)

	if got := LoggerFrom(ctx, nil); got != logger {
		t.Error("LoggerFrom should return the stored logger")
	}
	fallback := zap.NewNop()
	if got := LoggerFrom(context.Background(), fallback); got != fallback {
		t.Error("LoggerFrom should return fallback when no logger in context")
	}
}

func TestRequestLogger_enrichesWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	rctx := &model.RequestContext{
		SubjectID: "user-42",
		RequestID: "req-abc",
		TraceID:   "trace-xyz",
	}
	ctx := model.WithRequestContext(context.Background(), rctx)

	RequestLogger(ctx, logger).Info("test message")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}

	checks := map[string]string{
		"subject_id": "user-42",
		"request_id": "req-abc",
		"trace_id":   "trace-xyz",
		"msg":        "test message",
		"level":      "info",
	}
	for key, want := range checks {
		got, ok := entry[key].(string)
		if !ok {
			t.Errorf("missing field %q in log entry", key)
			continue
		}
		if got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestRequestLogger_anonymous(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := model.WithRequestContext(context.Background(), &model.RequestContext{RequestID: "req-1"})
	RequestLogger(ctx, logger).Info("anonymous")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if _, exists := entry["subject_id"]; exists {
		t.Error("subject_id should not be present when empty")
	}
	if _, exists := entry["trace_id"]; exists {
		t.Error("trace_id should not be present when empty")
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry["request_id"])
	}
}

func TestRequestLogger_noRequestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	RequestLogger(context.Background(), logger).Info("no context")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["msg"] != "no context" {
		t.Errorf("msg = %q, want no context", entry["msg"])
	}
	if _, exists := entry["request_id"]; exists {
		t.Error("request_id should not be present without RequestContext")
	}
}

func TestRedactBody(t *testing.T) {
	body := map[string]any{
		"name":     "John",
		"password": "secret123",
		"session": map[string]any{
			"token": "abc.def.ghi",
			"theme": "dark",
		},
		"pinCode": "1234",
	}

	redacted := RedactBody(body, []string{"pinCode"})
	if redacted["name"] != "John" {
		t.Errorf("name = %v, want John", redacted["name"])
	}
	if redacted["password"] != "[REDACTED]" {
		t.Errorf("password = %v, want [REDACTED]", redacted["password"])
	}
	if redacted["pinCode"] != "[REDACTED]" {
		t.Errorf("pinCode = %v, want [REDACTED]", redacted["pinCode"])
	}
	nested := redacted["session"].(map[string]any)
	if nested["token"] != "[REDACTED]" || nested["theme"] != "dark" {
		t.Errorf("session = %v", nested)
	}
	if body["password"] != "secret123" {
		t.Error("RedactBody mutated its input")
	}
	if RedactBody(nil, nil) != nil {
		t.Error("RedactBody(nil) should be nil")
	}
}

func TestRedactBody_caseAndArrays(t *testing.T) {
	body := map[string]any{
		"Authorization": "Bearer x",
		"items": []any{
			map[string]any{"name": "a", "OTP": "9911"},
			"plain",
		},
	}

	got := RedactBody(body, nil)
	if got["Authorization"] != "[REDACTED]" {
		t.Errorf("Authorization = %v", got["Authorization"])
	}
	items := got["items"].([]any)
	first := items[0].(map[string]any)
	if first["OTP"] != "[REDACTED]" || first["name"] != "a" {
		t.Errorf("items[0] = %v", first)
	}
	if items[1] != "plain" {
		t.Errorf("items[1] = %v", items[1])
	}
	if body["items"].([]any)[0].(map[string]any)["OTP"] != "9911" {
		t.Error("RedactBody mutated a nested array element")
	}
}

func TestNewLogger_console(t *testing.T) {
	logger, err := NewLogger(config.ObservabilityConfig{LogLevel: "warn", LogFormat: "Console"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
}
