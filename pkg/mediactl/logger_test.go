package mediactl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerDev(t *testing.T) {
	logger, err := NewLogger(BuildTypeDev, false)
	require.NoError(t, err)

	assert.True(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel))
}
