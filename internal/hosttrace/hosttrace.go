// Package hosttrace builds the two loggers used by the host: an operational
// slog logger and the plain-line diagnostic trace enabled by COREHOST_TRACE.
//
// Trace lines are consumed by external tooling that greps for fixed
// prefixes such as "Adding tpa entry: ", so the trace handler writes the
// message verbatim with no level or timestamp decoration.
package hosttrace

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// NewLogger creates an isolated operational logger. It does not touch the
// global slog default.
func NewLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewTracer returns a logger whose records are written as bare lines to w.
// When enabled is false every record is dropped.
func NewTracer(w io.Writer, enabled bool) *slog.Logger {
	return slog.New(&lineHandler{w: w, enabled: enabled, mu: &sync.Mutex{}})
}

type lineHandler struct {
	w       io.Writer
	enabled bool
	attrs   []slog.Attr
	mu      *sync.Mutex
}

func (h *lineHandler) Enabled(context.Context, slog.Level) bool {
	return h.enabled
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	writeAttr := func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%s", a.Key, a.Value.String())
		return true
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(writeAttr)
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

// Groups carry no meaning for plain trace lines.
func (h *lineHandler) WithGroup(string) slog.Handler {
	return h
}
