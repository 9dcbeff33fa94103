package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ClientConfig 定义命令行客户端（表单控制器）的配置
type ClientConfig struct {
	RelayURL         string        // 中继端点完整地址
	DraftPath        string        // 本地草稿数据库路径
	AutosaveInterval time.Duration // 自动保存间隔，默认 8 秒
	SubmitCooldown   time.Duration // 提交成功后的冷却时间，默认 5 秒
	RequestTimeout   time.Duration // 提交请求超时，默认 30 秒
	Log              LogConfig
}

// LoadClient 加载客户端配置，环境变量前缀同为 FITLOG_
func LoadClient() (*ClientConfig, error) {
	loadEnvFile()

	v := newViper()

	v.SetDefault("client.relay_url", "http://localhost:8080/api/suggestions")
	v.SetDefault("client.draft_path", defaultDraftPath())
	v.SetDefault("client.autosave_interval", "8s")
	v.SetDefault("client.submit_cooldown", "5s")
	v.SetDefault("client.request_timeout", "30s")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.development", true)

	relayURL := v.GetString("client.relay_url")
	if err := validateWebhookURL(relayURL); err != nil {
		return nil, fmt.Errorf("invalid client.relay_url: %w", err)
	}

	autosave, err := time.ParseDuration(v.GetString("client.autosave_interval"))
	if err != nil || autosave <= 0 {
		return nil, fmt.Errorf("invalid client.autosave_interval %q", v.GetString("client.autosave_interval"))
	}

	cooldown, err := time.ParseDuration(v.GetString("client.submit_cooldown"))
	if err != nil {
		cooldown = 5 * time.Second
	}

	timeout, err := time.ParseDuration(v.GetString("client.request_timeout"))
	if err != nil {
		timeout = 30 * time.Second
	}

	return &ClientConfig{
		RelayURL:         relayURL,
		DraftPath:        v.GetString("client.draft_path"),
		AutosaveInterval: autosave,
		SubmitCooldown:   cooldown,
		RequestTimeout:   timeout,
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
	}, nil
}

// defaultDraftPath 默认草稿路径：~/.fitlog/drafts.db，取不到主目录时使用当前目录
func defaultDraftPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "fitlog-drafts.db")
	}
	return filepath.Join(home, ".fitlog", "drafts.db")
}
