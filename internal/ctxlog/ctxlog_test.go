package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_FallsBackToDiscard(t *testing.T) {
	t.Parallel()

	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
	assert.False(t, Trace(context.Background()).Enabled(context.Background(), slog.LevelInfo))
}

func TestWithLoggerAndTrace_AreIndependent(t *testing.T) {
	t.Parallel()

	var logBuf, traceBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	tracer := slog.New(slog.NewTextHandler(&traceBuf, nil))

	ctx := WithTrace(WithLogger(context.Background(), logger), tracer)
	FromContext(ctx).Info("operational")
	Trace(ctx).Info("trace line")

	assert.Contains(t, logBuf.String(), "operational")
	assert.NotContains(t, logBuf.String(), "trace line")
	assert.Contains(t, traceBuf.String(), "trace line")
}
