package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"panic": zapcore.PanicLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestSetLevelName verifies known names are applied and unknown names are rejected.
func TestSetLevelName(t *testing.T) {
	prev := Level()
	t.Cleanup(func() {
		SetLevel(prev)
	})

	require.NoError(t, SetLevelName(""))
	require.Equal(t, prev, Level())

	require.NoError(t, SetLevelName("debug"))
	require.Equal(t, zapcore.DebugLevel, Level())

	require.Error(t, SetLevelName("chatty"))
}

// TestFromContext_FallsBackToGlobal checks the global logger is returned for bare contexts.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))

	named := New(zapcore.InfoLevel).Named("test")
	ctx := ToContext(context.Background(), named)
	require.Same(t, named, FromContext(ctx))

	ctx = WithName(ctx, "child")
	require.NotSame(t, named, FromContext(ctx))
}

// TestWithMinLevel raises the threshold of the context logger only.
func TestWithMinLevel(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	quiet := WithMinLevel(ctx, zapcore.WarnLevel)
	Info(quiet, "installer chatter")
	Warn(quiet, "installer warning")
	Info(ctx, "bootstrap progress")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	require.Equal(t, "installer warning", entries[0].Message)
	require.Equal(t, "bootstrap progress", entries[1].Message)
}

// TestWithMinLevel_Lowers lets debug entries through a logger built at info.
func TestWithMinLevel_Lowers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	DebugKV(ctx, "dropped")
	DebugKV(WithMinLevel(ctx, zapcore.DebugLevel), "kept", "stage", "installer")

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	require.Equal(t, "kept", entries[0].Message)
	require.Equal(t, "installer", entries[0].ContextMap()["stage"])
}
