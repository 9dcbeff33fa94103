package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// withCleanEnv 清除指定环境变量并在测试结束后恢复
func withCleanEnv(t *testing.T, keys []string) {
	t.Helper()
	original := make(map[string]string)
	for _, key := range keys {
		original[key] = os.Getenv(key)
		os.Unsetenv(key)
	}
	t.Cleanup(func() {
		for key, value := range original {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	})
}

var relayEnvKeys = []string{
	"FITLOG_RELAY_WEBHOOK_URL",
	"FITLOG_SERVER_HOST",
	"FITLOG_SERVER_PORT",
	"FITLOG_SERVER_TRUSTED_PROXIES",
	"FITLOG_RELAY_MAX_FILE_SIZE",
	"FITLOG_RELAY_ALLOWED_TYPES",
	"FITLOG_RELAY_RATE_LIMIT",
	"FITLOG_RELAY_RATE_WINDOW",
	"FITLOG_RELAY_WEBHOOK_TIMEOUT",
	"FITLOG_CORS_ALLOWED_ORIGINS",
	"FITLOG_LOG_LEVEL",
	"FITLOG_LOG_DEVELOPMENT",
	"FITLOG_REDIS_ADDRESS",
	"FITLOG_REDIS_DB",
	"FITLOG_STAGING_BACKEND",
	"FITLOG_MINIO_ENDPOINT",
}

func TestLoad(t *testing.T) {
	t.Run("加载默认配置成功", func(t *testing.T) {
		withCleanEnv(t, relayEnvKeys)
		os.Setenv("FITLOG_RELAY_WEBHOOK_URL", "https://chat.example.com/hooks/abc")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Empty(t, cfg.Server.TrustedProxies)
		assert.Equal(t, "https://chat.example.com/hooks/abc", cfg.Relay.WebhookURL)
		assert.Equal(t, "/api/suggestions", cfg.Relay.Path)
		assert.Equal(t, int64(5*1024*1024), cfg.Relay.MaxFileSize)
		assert.Equal(t, []string{"image/jpeg", "image/png", "image/webp"}, cfg.Relay.AllowedTypes)
		assert.Equal(t, 5, cfg.Relay.RateLimit)
		assert.Equal(t, time.Hour, cfg.Relay.RateWindow)
		assert.Equal(t, 10*time.Second, cfg.Relay.WebhookTimeout)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
		assert.Equal(t, "", cfg.Redis.Address)
		assert.Equal(t, "filesystem", cfg.Staging.Backend)
	})

	t.Run("加载自定义配置成功", func(t *testing.T) {
		withCleanEnv(t, relayEnvKeys)
		os.Setenv("FITLOG_RELAY_WEBHOOK_URL", "https://chat.example.com/hooks/xyz")
		os.Setenv("FITLOG_SERVER_HOST", "127.0.0.1")
		os.Setenv("FITLOG_SERVER_PORT", "9090")
		os.Setenv("FITLOG_RELAY_MAX_FILE_SIZE", "1048576")
		os.Setenv("FITLOG_RELAY_ALLOWED_TYPES", "image/PNG, image/gif")
		os.Setenv("FITLOG_RELAY_RATE_LIMIT", "10")
		os.Setenv("FITLOG_RELAY_RATE_WINDOW", "30m")
		os.Setenv("FITLOG_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
		os.Setenv("FITLOG_LOG_LEVEL", "debug")
		os.Setenv("FITLOG_LOG_DEVELOPMENT", "true")
		os.Setenv("FITLOG_REDIS_ADDRESS", "localhost:6379")
		os.Setenv("FITLOG_REDIS_DB", "2")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, int64(1048576), cfg.Relay.MaxFileSize)
		assert.Equal(t, []string{"image/png", "image/gif"}, cfg.Relay.AllowedTypes)
		assert.Equal(t, 10, cfg.Relay.RateLimit)
		assert.Equal(t, 30*time.Minute, cfg.Relay.RateWindow)
		assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.Development)
		assert.Equal(t, "localhost:6379", cfg.Redis.Address)
		assert.Equal(t, 2, cfg.Redis.DB)
	})

	t.Run("缺少Webhook地址失败", func(t *testing.T) {
		withCleanEnv(t, relayEnvKeys)

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "relay.webhook_url is required")
	})

	t.Run("Webhook地址协议无效失败", func(t *testing.T) {
		withCleanEnv(t, relayEnvKeys)
		os.Setenv("FITLOG_RELAY_WEBHOOK_URL", "ftp://chat.example.com/hook")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "scheme must be http or https")
	})

	t.Run("无效的限流窗口失败", func(t *testing.T) {
		withCleanEnv(t, relayEnvKeys)
		os.Setenv("FITLOG_RELAY_WEBHOOK_URL", "https://chat.example.com/hooks/abc")
		os.Setenv("FITLOG_RELAY_RATE_WINDOW", "an-hour")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid relay.rate_window")
	})

	t.Run("解析可信代理", func(t *testing.T) {
		withCleanEnv(t, relayEnvKeys)
		os.Setenv("FITLOG_RELAY_WEBHOOK_URL", "https://chat.example.com/hooks/abc")
		os.Setenv("FITLOG_SERVER_TRUSTED_PROXIES", "10.0.0.1, 192.168.0.0/16")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.Server.TrustedProxies)
	})

	t.Run("无效的可信代理失败", func(t *testing.T) {
		withCleanEnv(t, relayEnvKeys)
		os.Setenv("FITLOG_RELAY_WEBHOOK_URL", "https://chat.example.com/hooks/abc")
		os.Setenv("FITLOG_SERVER_TRUSTED_PROXIES", "proxy.internal")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "server.trusted_proxies")
	})

	t.Run("MinIO暂存缺少地址失败", func(t *testing.T) {
		withCleanEnv(t, relayEnvKeys)
		os.Setenv("FITLOG_RELAY_WEBHOOK_URL", "https://chat.example.com/hooks/abc")
		os.Setenv("FITLOG_STAGING_BACKEND", "minio")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "minio.endpoint is required")
	})
}

func TestLoadClient(t *testing.T) {
	keys := []string{
		"FITLOG_CLIENT_RELAY_URL",
		"FITLOG_CLIENT_DRAFT_PATH",
		"FITLOG_CLIENT_AUTOSAVE_INTERVAL",
		"FITLOG_CLIENT_SUBMIT_COOLDOWN",
	}

	t.Run("加载默认配置成功", func(t *testing.T) {
		withCleanEnv(t, keys)

		cfg, err := LoadClient()

		assert.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/api/suggestions", cfg.RelayURL)
		assert.Equal(t, 8*time.Second, cfg.AutosaveInterval)
		assert.Equal(t, 5*time.Second, cfg.SubmitCooldown)
		assert.NotEmpty(t, cfg.DraftPath)
	})

	t.Run("自定义草稿路径", func(t *testing.T) {
		withCleanEnv(t, keys)
		os.Setenv("FITLOG_CLIENT_DRAFT_PATH", "/tmp/drafts.db")
		os.Setenv("FITLOG_CLIENT_AUTOSAVE_INTERVAL", "2s")

		cfg, err := LoadClient()

		assert.NoError(t, err)
		assert.Equal(t, "/tmp/drafts.db", cfg.DraftPath)
		assert.Equal(t, 2*time.Second, cfg.AutosaveInterval)
	})

	t.Run("无效的自动保存间隔失败", func(t *testing.T) {
		withCleanEnv(t, keys)
		os.Setenv("FITLOG_CLIENT_AUTOSAVE_INTERVAL", "0s")

		cfg, err := LoadClient()

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}

func TestParseTypes(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "单个类型",
			input:    "image/png",
			expected: []string{"image/png"},
		},
		{
			name:     "大写转小写",
			input:    "IMAGE/JPEG,Image/WebP",
			expected: []string{"image/jpeg", "image/webp"},
		},
		{
			name:     "混合空值",
			input:    "image/png,, image/jpeg ,",
			expected: []string{"image/png", "image/jpeg"},
		},
		{
			name:     "空字符串",
			input:    "",
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseTypes(tc.input))
		})
	}
}

func TestParseList(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "多个项目",
			input:    "item1,item2,item3",
			expected: []string{"item1", "item2", "item3"},
		},
		{
			name:     "带空格的项目",
			input:    " item1 , item2 ",
			expected: []string{"item1", "item2"},
		},
		{
			name:     "只有逗号",
			input:    ",,,",
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseList(tc.input))
		})
	}
}
