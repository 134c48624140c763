package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
	}{
		{name: "JSON output mode", jsonOutput: true},
		{name: "Console output mode", jsonOutput: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			previous := Logger
			t.Cleanup(func() { Logger = previous; JSONOutput = false })

			require.NoError(t, Initialize(tt.jsonOutput))
			assert.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{-1, zapcore.WarnLevel},
		{VerbosityUser, zapcore.WarnLevel},
		{VerbosityInfo, zapcore.InfoLevel},
		{VerbosityDebug, zapcore.DebugLevel},
		{VerbosityTrace, zapcore.DebugLevel},
		{9, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VerbosityToLevel(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestInitializeWithVerbosity_FiltersLevel(t *testing.T) {
	previous := Logger
	t.Cleanup(func() { Logger = previous })

	require.NoError(t, InitializeWithVerbosity(false, VerbosityUser))
	assert.False(t, Logger.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.WarnLevel))
}

func TestLoggerFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core).Sugar()

	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithComponent(ctx, "migration.engine")

	LoggerFromContext(ctx, base).Infow("unit done", FieldUnit, 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "run-1", fields[FieldRunID])
	assert.Equal(t, "migration.engine", fields[FieldComponent])
	assert.EqualValues(t, 3, fields[FieldUnit])
}

func TestLoggerFromContext_NoFields(t *testing.T) {
	base := zap.NewNop().Sugar()
	assert.Same(t, base, LoggerFromContext(context.Background(), base))
	assert.Empty(t, FieldsFromContext(context.Background()))
}

func TestHelpersWithObservedGlobal(t *testing.T) {
	previous := Logger
	t.Cleanup(func() { Logger = previous })

	core, logs := observer.New(zapcore.DebugLevel)
	Logger = zap.New(core).Sugar()

	Infow("info", FieldCount, 1)
	Debugw("debug")
	ComponentLogger("owner.loader").Infow("named")

	require.Equal(t, 3, logs.Len())
	assert.Equal(t, "owner.loader", logs.All()[2].LoggerName)
}
