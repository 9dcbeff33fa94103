package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"fitlog/backend/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("无效级别回退到info", func(t *testing.T) {
		log, err := NewLogger(Config{Level: "verbose"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("写入日志文件", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "relay.log")
		log, err := NewLogger(FromLogConfig("relay", config.LogConfig{Level: "info", File: path}))
		require.NoError(t, err)

		log.Info("suggestion forwarded")
		_ = log.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "suggestion forwarded")
		assert.Contains(t, string(data), `"service":"relay"`)
	})
}
