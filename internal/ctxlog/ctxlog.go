// Package ctxlog carries the operational logger and the host trace logger
// through context.Context.
package ctxlog

import (
	"context"
	"io"
	"log/slog"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key int

const (
	loggerKey key = iota
	traceKey
)

var discard = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the operational logger from a context. A context
// without one yields a logger that drops everything.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return discard
}

// WithTrace returns a new context carrying the host trace logger.
func WithTrace(ctx context.Context, tracer *slog.Logger) context.Context {
	return context.WithValue(ctx, traceKey, tracer)
}

// Trace extracts the host trace logger, or a discarding one when tracing
// was never configured.
func Trace(ctx context.Context) *slog.Logger {
	if tracer, ok := ctx.Value(traceKey).(*slog.Logger); ok {
		return tracer
	}
	return discard
}
