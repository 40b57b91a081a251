package startup

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogTracerLifecycle(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tracer := NewLogTracer(logger)

	tracer.StartTrace("db_init")
	tracer.StopTrace("db_init")
	tracer.StartTrace("warmup")
	tracer.DropTrace("warmup")

	out := buf.String()
	assert.Contains(t, out, "trace started")
	assert.Contains(t, out, "trace stopped")
	assert.Contains(t, out, "trace dropped")
	assert.Contains(t, out, "duration_ms")
}

func TestLogTracerStopWithoutStartWarns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tracer := NewLogTracer(logger)

	tracer.StopTrace("never_started")
	assert.True(t, strings.Contains(buf.String(), "unknown trace"))
}

func TestNopTracerDoesNothing(t *testing.T) {
	t.Parallel()

	tracer := NewNopTracer()
	// Must not panic or block.
	tracer.StartTrace("x")
	tracer.StopTrace("x")
	tracer.DropTrace("x")
}
