package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host           string   // 监听地址，默认 "0.0.0.0"
	Port           int      // 监听端口，默认 8080
	TrustedProxies []string // 可信反向代理（IP 或 CIDR）；为空时只信任套接字对端地址
}

// RelayConfig 定义建议中继端点的核心业务配置
type RelayConfig struct {
	WebhookURL     string        // 外部聊天 Webhook 地址（部署密钥，不得写入源码）
	Path           string        // 提交路由，默认 "/api/suggestions"
	MaxFileSize    int64         // 附件最大字节数，默认 5MB
	AllowedTypes   []string      // 允许的附件 MIME 类型
	RateLimit      int           // 每个客户端在一个窗口内最多提交次数，默认 5
	RateWindow     time.Duration // 限流窗口，默认 1 小时
	WebhookTimeout time.Duration // 单次 Webhook 调用超时，默认 10 秒
	WebhookRPS     float64       // 发往 Webhook 的每秒请求数上限
	WebhookBurst   int           // Webhook 突发请求数
	AppName        string        // 消息页脚中的应用名
	AppVersion     string        // 消息页脚中的版本号
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空只输出到控制台
}

// RedisConfig 定义 Redis 配置，Address 为空时使用进程内限流
type RedisConfig struct {
	Address  string // Redis 服务地址，格式 "host:port"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// StagingConfig 定义上传文件的临时暂存配置
type StagingConfig struct {
	Backend string // "filesystem" 或 "minio"
	Path    string // 文件系统暂存目录，默认系统临时目录
}

// MinIOConfig 定义对象存储暂存配置
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseTLS    bool
}

// Config 是中继服务配置的根结构体
type Config struct {
	Server  ServerConfig
	Relay   RelayConfig
	CORS    CORSConfig
	Log     LogConfig
	Redis   RedisConfig
	Staging StagingConfig
	MinIO   MinIOConfig
}

// Load 从环境变量和 .env 文件加载中继服务配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: FITLOG_
// 例如: FITLOG_SERVER_PORT, FITLOG_RELAY_WEBHOOK_URL
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.trusted_proxies", "")
	v.SetDefault("relay.webhook_url", "")
	v.SetDefault("relay.path", "/api/suggestions")
	v.SetDefault("relay.max_file_size", 5*1024*1024)
	v.SetDefault("relay.allowed_types", "image/jpeg,image/png,image/webp")
	v.SetDefault("relay.rate_limit", 5)
	v.SetDefault("relay.rate_window", "1h")
	v.SetDefault("relay.webhook_timeout", "10s")
	v.SetDefault("relay.webhook_rps", 1.0)
	v.SetDefault("relay.webhook_burst", 5)
	v.SetDefault("relay.app_name", "FitLog")
	v.SetDefault("relay.app_version", "1.0.0")
	v.SetDefault("cors.allowed_origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("staging.backend", "filesystem")
	v.SetDefault("staging.path", filepath.Join(os.TempDir(), "fitlog-uploads"))
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "suggestion-uploads")
	v.SetDefault("minio.use_tls", false)

	webhookURL := strings.TrimSpace(v.GetString("relay.webhook_url"))
	if webhookURL == "" {
		return nil, fmt.Errorf("relay.webhook_url is required. Please set FITLOG_RELAY_WEBHOOK_URL environment variable")
	}
	if err := validateWebhookURL(webhookURL); err != nil {
		return nil, err
	}

	rateWindow, err := time.ParseDuration(v.GetString("relay.rate_window"))
	if err != nil {
		return nil, fmt.Errorf("invalid relay.rate_window: %w", err)
	}

	webhookTimeout, err := time.ParseDuration(v.GetString("relay.webhook_timeout"))
	if err != nil {
		webhookTimeout = 10 * time.Second
	}

	maxFileSize := v.GetInt64("relay.max_file_size")
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("relay.max_file_size must be positive")
	}

	rateLimit := v.GetInt("relay.rate_limit")
	if rateLimit <= 0 {
		rateLimit = 5
	}

	allowedTypes := parseTypes(v.GetString("relay.allowed_types"))
	if len(allowedTypes) == 0 {
		return nil, fmt.Errorf("relay.allowed_types must not be empty")
	}

	corsOrigins := parseList(v.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	stagingBackend := strings.ToLower(v.GetString("staging.backend"))
	if stagingBackend != "filesystem" && stagingBackend != "minio" {
		return nil, fmt.Errorf("invalid staging.backend %q: must be filesystem or minio", stagingBackend)
	}
	if stagingBackend == "minio" && v.GetString("minio.endpoint") == "" {
		return nil, fmt.Errorf("minio.endpoint is required when staging.backend is minio")
	}

	trustedProxies := parseList(v.GetString("server.trusted_proxies"))
	if err := validateTrustedProxies(trustedProxies); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			TrustedProxies: trustedProxies,
		},
		Relay: RelayConfig{
			WebhookURL:     webhookURL,
			Path:           v.GetString("relay.path"),
			MaxFileSize:    maxFileSize,
			AllowedTypes:   allowedTypes,
			RateLimit:      rateLimit,
			RateWindow:     rateWindow,
			WebhookTimeout: webhookTimeout,
			WebhookRPS:     v.GetFloat64("relay.webhook_rps"),
			WebhookBurst:   v.GetInt("relay.webhook_burst"),
			AppName:        v.GetString("relay.app_name"),
			AppVersion:     v.GetString("relay.app_version"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			File:        v.GetString("log.file"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Staging: StagingConfig{
			Backend: stagingBackend,
			Path:    v.GetString("staging.path"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("minio.endpoint"),
			AccessKey: v.GetString("minio.access_key"),
			SecretKey: v.GetString("minio.secret_key"),
			Bucket:    v.GetString("minio.bucket"),
			UseTLS:    v.GetBool("minio.use_tls"),
		},
	}

	return cfg, nil
}

// newViper 创建读取 FITLOG_ 前缀环境变量的 viper 实例
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("fitlog")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// validateWebhookURL 只接受 http/https 的绝对地址
func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid relay.webhook_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid relay.webhook_url: scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("invalid relay.webhook_url: missing host")
	}
	return nil
}

// validateTrustedProxies 每一项必须是 IP 或 CIDR
func validateTrustedProxies(proxies []string) error {
	for _, p := range proxies {
		if net.ParseIP(p) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(p); err != nil {
			return fmt.Errorf("invalid server.trusted_proxies entry %q: must be an IP or CIDR", p)
		}
	}
	return nil
}

// parseTypes 将逗号分隔的 MIME 类型解析为小写数组
//
// 参数:
//   - value: 逗号分隔的类型字符串，如 "image/png,image/jpeg"
//
// 返回值:
//   - []string: 解析后的小写类型数组
func parseTypes(value string) []string {
	out := parseList(value)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

// parseList 将逗号分隔的字符串解析为字符串切片
//
// 参数:
//   - value: 逗号分隔的字符串，如 "item1,item2,item3"
//
// 返回值:
//   - []string: 解析后的字符串切片，已去除空白字符
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env
//
// 注意：
//   - 如果文件不存在，静默失败（.env 是可选的）
//   - 已存在的环境变量优先级更高，不会被覆盖
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
