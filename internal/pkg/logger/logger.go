// Package logger provides structured logging with correlation support.
//
// Features:
// - Context-aware logging: correlation ID, request ID and idempotency
//   key are picked up from context automatically
// - Trace/span IDs are extracted from the active OpenTelemetry span
// - JSON and text output formats
// - Log level configuration
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for correlation data
type contextKey string

const (
	// CorrelationIDKey is the context key for correlation ID
	CorrelationIDKey contextKey = "correlation_id"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// IdempotencyKeyKey is the context key for the transfer idempotency key.
	// Every log line of one transfer attempt carries the same key, so a
	// single grep reconstructs the whole retry story.
	IdempotencyKeyKey contextKey = "idempotency_key"
)

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, text
	Output     io.Writer
	AddSource  bool
	TimeFormat string
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "json",
		Output:     os.Stdout,
		AddSource:  false,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// New creates a new slog.Logger with the given configuration
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(&ContextHandler{handler: handler})
}

// ContextHandler wraps a slog.Handler to enrich records with
// correlation data from context and the active trace span.
type ContextHandler struct {
	handler slog.Handler
}

// Enabled returns whether the handler is enabled for the given level
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds correlation data from context to the log record
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		r.AddAttrs(slog.String("correlation_id", correlationID))
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if key := GetIdempotencyKey(ctx); key != "" {
		r.AddAttrs(slog.String("idempotency_key", key))
	}

	// Trace/span IDs come from the live span, not from context values:
	// the span is the source of truth and survives context rewrapping.
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.TraceID().String()),
			slog.String("span_id", span.SpanID().String()),
		)
	}

	return h.handler.Handle(ctx, r)
}

// WithAttrs returns a new handler with the given attributes
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a new handler with the given group
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}

// Context helpers

// WithCorrelationID adds correlation ID to context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// GetCorrelationID extracts correlation ID from context
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithIdempotencyKey adds the transfer idempotency key to context
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, IdempotencyKeyKey, key)
}

// GetIdempotencyKey extracts the transfer idempotency key from context
func GetIdempotencyKey(ctx context.Context) string {
	if key, ok := ctx.Value(IdempotencyKeyKey).(string); ok {
		return key
	}
	return ""
}

// L is a convenience function to get the default logger
func L() *slog.Logger {
	return slog.Default()
}

// Setup initializes the global logger
func Setup(cfg *Config) {
	logger := New(cfg)
	slog.SetDefault(logger)
}
