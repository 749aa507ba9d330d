package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "request", "trace-1")
	childCtx, dispatch := StartChildSpan(ctx, "dispatch")
	_, collect := StartChildSpan(ctx, "collect")
	dispatch.SetAttr("lines", 42)
	dispatch.End()
	collect.End()
	root.End()

	assert.Same(t, dispatch, SpanFromContext(childCtx))
	require.Len(t, root.Children, 2)
	assert.Equal(t, "trace-1", dispatch.TraceID)
	v, ok := dispatch.Attr("lines")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	root.Log(logger)
	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "msg=span"))
	assert.Contains(t, out, "span=dispatch")
	assert.Contains(t, out, "lines=42")
}

func TestOrphanChildSpan(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	span.End()
	assert.Empty(t, span.TraceID)
	assert.Nil(t, SpanFromContext(context.Background()))
}

func TestNewTraceID(t *testing.T) {
	a, b := NewTraceID(), NewTraceID()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
