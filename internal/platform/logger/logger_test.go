package logger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/ignition/internal/config"
)

func TestSetupReturnsConfiguredLogger(t *testing.T) {
	testCases := []struct {
		name    string
		level   string
		debugOn bool
		fatalOn bool
	}{
		{name: "debug level", level: "debug", debugOn: true, fatalOn: true},
		{name: "info level", level: "info", debugOn: false, fatalOn: true},
		{name: "fatal level", level: "fatal", debugOn: false, fatalOn: true},
		{name: "invalid level falls back to info", level: "nonsense", debugOn: false, fatalOn: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := Setup(config.ServerConfig{Port: 8080, LogLevel: tc.level})
			require.NoError(t, err)
			require.NotNil(t, logger)

			ctx := context.Background()
			assert.Equal(t, tc.debugOn, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tc.fatalOn, logger.Enabled(ctx, LevelFatal))
		})
	}
}

func TestLevelFatalAboveError(t *testing.T) {
	assert.Greater(t, int(LevelFatal), int(slog.LevelError))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestWithLoggerRoundTrip(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := WithLogger(context.Background(), custom)
	assert.Same(t, custom, FromContext(ctx))
}
