package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestContextHelpers verifies names and fields travel with the context logger.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "engine")
	ctx = WithKV(ctx, "sensor_id", "front-door")
	ctx = WithFields(ctx, zap.String("arming", "ARMED_HOME"))

	InfoKV(ctx, "Alarm status changed", "status", "ALARM")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "engine", entries[0].LoggerName)
	require.Equal(t, "Alarm status changed", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "front-door", fields["sensor_id"])
	require.Equal(t, "ARMED_HOME", fields["arming"])
	require.Equal(t, "ALARM", fields["status"])
}
