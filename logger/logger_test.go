package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	require.NoError(t, Init("warn"))
	assert.False(t, Log.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Log.Desugar().Core().Enabled(zapcore.WarnLevel))
}

func TestInit_BadLevel(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	assert.Error(t, Init("loud"))
	assert.Same(t, prev, Log)
}

func TestDefaultIsNop(t *testing.T) {
	nop := zap.NewNop().Sugar()
	assert.Equal(t, nop.Desugar().Core().Enabled(zapcore.ErrorLevel), Log.Desugar().Core().Enabled(zapcore.ErrorLevel))
}
