package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// ServiceName is attached to every log line as "service".
const ServiceName = "carlet-notify"

// NewLogger builds the process logger from LOG_FORMAT ("json" by default, or
// "text") and LOG_LEVEL ("debug", "info", "warn", "error"; default info).
func NewLogger() *slog.Logger {
	return New(os.Stdout, os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))
}

// New builds a logger writing to w. Unknown formats fall back to JSON and
// unknown levels to info.
func New(w io.Writer, format, level string) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		// Source locations only when warnings or lower are enabled.
		AddSource: lvl <= slog.LevelWarn,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("service", ServiceName))
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// NewRequestID stores a fresh UUID request ID in ctx and returns both.
// The listener and the scheduler call it once per handled event or tick.
func NewRequestID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return ContextWithRequestID(ctx, id), id
}

// ContextWithRequestID returns a copy of ctx carrying id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// WithRequestID returns logger with the request_id from ctx attached, or
// logger itself when ctx has none.
func WithRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	reqID := RequestIDFromContext(ctx)
	if reqID == "" {
		return logger
	}
	return logger.With(slog.String("request_id", reqID))
}

type contextKey string

const requestIDContextKey contextKey = "request_id"
