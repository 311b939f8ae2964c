package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogger_NoopBeforeInitialize(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("not initialized")
		ErrorCtx(context.Background(), errors.New("boom"))
		Warn("still fine", zap.Int("n", 1))
	})
	assert.NotNil(t, Default())
}

func TestInitialize_WithoutSentry(t *testing.T) {
	require.NoError(t, Initialize(Config{Debug: true, Tags: map[string]string{"service": "test"}}))

	assert.True(t, Default().Core().Enabled(zap.DebugLevel))
	assert.NotPanics(t, func() {
		ForScan(context.Background(), "eip155:1", "0x0000000000000000000000000000000000000001").Info("scan")
		Error(nil)
		Flush(0)
	})
}

func TestInitialize_ProductionLevel(t *testing.T) {
	require.NoError(t, Initialize(Config{Debug: false}))
	assert.False(t, Default().Core().Enabled(zap.DebugLevel))
	assert.True(t, Default().Core().Enabled(zap.InfoLevel))
}
