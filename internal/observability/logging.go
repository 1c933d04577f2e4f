package observability

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pitabwire/sdui/internal/config"
	"github.com/pitabwire/sdui/model"
)

// Log encodings accepted by NewLogger.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

type loggerKey struct{}

// NewLogger builds the process logger. JSON goes to stdout for the server;
// the console encoding suits interactive CLI use. Unknown levels fall back
// to info.
//
// Levels:
//   - error: storage failures, panics, 5xx responses
//   - warn:  contained block failures, unresolved loop bounds, query issues
//   - info:  imports, deletes, server lifecycle
//   - debug: per-node mapping and binding detail
func NewLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder

	encoding := LogFormatJSON
	if strings.EqualFold(cfg.LogFormat, LogFormatConsole) {
		encoding = LogFormatConsole
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    enc,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("version", Version)), nil
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the context logger, or fallback.
func LoggerFrom(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}

// RequestLogger returns the context logger tagged with the request ID and,
// when known, the caller and trace.
func RequestLogger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	logger := LoggerFrom(ctx, fallback)
	rctx := model.RequestContextFrom(ctx)
	if rctx == nil {
		return logger
	}

	fields := make([]zap.Field, 0, 3)
	fields = append(fields, zap.String("request_id", rctx.RequestID))
	if rctx.SubjectID != "" {
		fields = append(fields, zap.String("subject_id", rctx.SubjectID))
	}
	if rctx.TraceID != "" {
		fields = append(fields, zap.String("trace_id", rctx.TraceID))
	}
	return logger.With(fields...)
}

const redacted = "[REDACTED]"

// Keys whose values never reach the logs, compared case-insensitively.
var sensitiveKeys = []string{
	"password", "secret", "token", "access_token", "refresh_token",
	"api_key", "authorization", "pin", "otp", "cvv",
}

// RedactBody returns a copy of a data context body with the values of
// sensitive keys replaced. extra adds keys to the built-in list. Nested
// objects and arrays are walked; the input is not modified.
func RedactBody(body map[string]any, extra []string) map[string]any {
	if body == nil {
		return nil
	}
	keys := make(map[string]struct{}, len(sensitiveKeys)+len(extra))
	for _, k := range sensitiveKeys {
		keys[k] = struct{}{}
	}
	for _, k := range extra {
		keys[strings.ToLower(k)] = struct{}{}
	}
	return redactMap(body, keys)
}

func redactMap(m map[string]any, keys map[string]struct{}) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, hit := keys[strings.ToLower(k)]; hit {
			out[k] = redacted
			continue
		}
		out[k] = redactValue(v, keys)
	}
	return out
}

func redactValue(v any, keys map[string]struct{}) any {
	switch t := v.(type) {
	case map[string]any:
		return redactMap(t, keys)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactValue(e, keys)
		}
		return out
	default:
		return v
	}
}
