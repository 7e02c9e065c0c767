package observ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		env, level string
		want       zapcore.Level
	}{
		{"production", "warn", zapcore.WarnLevel},
		{"development", "debug", zapcore.DebugLevel},
		{"development", "loud", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		logger, err := NewLogger(tt.env, tt.level)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(tt.want), "%s/%s", tt.env, tt.level)
		if tt.want > zapcore.DebugLevel {
			assert.False(t, logger.Core().Enabled(tt.want-1), "%s/%s", tt.env, tt.level)
		}
	}
}
