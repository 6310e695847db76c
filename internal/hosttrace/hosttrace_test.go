package hosttrace

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTracer_WritesBareLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tracer := NewTracer(&buf, true)

	tracer.Info("Adding tpa entry: /app/App.dll")
	tracer.Debug("Probing path: /app")

	assert.Equal(t, "Adding tpa entry: /app/App.dll\nProbing path: /app\n", buf.String())
}

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tracer := NewTracer(&buf, false)
	tracer.Info("Adding tpa entry: /app/App.dll")

	assert.Empty(t, buf.String())
}

func TestNewTracer_Attrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tracer := NewTracer(&buf, true).With("framework", "Microsoft.NETCore.App")
	tracer.Info("Resolved framework", "version", "2.0.0")

	assert.Equal(t, "Resolved framework framework=Microsoft.NETCore.App version=2.0.0\n", buf.String())
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewLogger_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger("info", "json", &buf)
	logger.Info("hello", "k", "v")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
