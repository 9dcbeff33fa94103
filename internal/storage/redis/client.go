package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fitlog/backend/internal/config"
	"fitlog/backend/internal/storage"
)

// 键前缀
const (
	rateLimitPrefix = "fitlog:ratelimit:"
	valuePrefix     = "fitlog:kv:"
)

// Client 封装 Redis 客户端，提供分布式限流计数与键值存储
type Client struct {
	rdb *goredis.Client
	log *zap.Logger
}

var (
	_ storage.RateLimitRepository = (*Client)(nil)
	_ storage.KeyValueRepository  = (*Client)(nil)
)

// New 创建新的 Redis 客户端并测试连接
func New(cfg config.RedisConfig, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("connected to Redis",
		zap.String("address", cfg.Address),
		zap.Int("db", cfg.DB),
	)

	return NewFromClient(rdb, log), nil
}

// NewFromClient 使用已有的 go-redis 客户端构建
func NewFromClient(rdb *goredis.Client, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{rdb: rdb, log: log}
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		c.log.Error("failed to close Redis connection", zap.Error(err))
		return err
	}
	c.log.Info("Redis connection closed")
	return nil
}

// Ping 测试 Redis 连接
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// ========== 限流 ==========

// IncrementRateLimit 增加限流计数。
//
// INCR 与 EXPIRE NX 在同一事务中执行，过期时间只在窗口的第一次计数时设置。
func (c *Client) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	if key == "" {
		return 0, time.Time{}, storage.ErrInvalidKey
	}
	fullKey := rateLimitPrefix + key

	var (
		incr *goredis.IntCmd
		pttl *goredis.DurationCmd
	)
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		pipe.ExpireNX(ctx, fullKey, window)
		pttl = pipe.PTTL(ctx, fullKey)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("increment rate limit: %w", err)
	}

	return incr.Val(), resetAt(pttl.Val(), window), nil
}

// GetRateLimit 获取限流计数
func (c *Client) GetRateLimit(ctx context.Context, key string) (int64, time.Time, error) {
	fullKey := rateLimitPrefix + key

	var (
		get  *goredis.StringCmd
		pttl *goredis.DurationCmd
	)
	_, err := c.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		get = pipe.Get(ctx, fullKey)
		pttl = pipe.PTTL(ctx, fullKey)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return 0, time.Time{}, fmt.Errorf("get rate limit: %w", err)
	}

	count, err := get.Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, time.Time{}, nil
		}
		return 0, time.Time{}, fmt.Errorf("parse rate limit: %w", err)
	}

	return count, resetAt(pttl.Val(), 0), nil
}

// resetAt 根据剩余 TTL 计算窗口结束时间；TTL 缺失时退回到完整窗口
func resetAt(ttl, window time.Duration) time.Time {
	if ttl <= 0 {
		ttl = window
	}
	return time.Now().Add(ttl)
}

// ========== 键值 ==========

// GetValue 获取键值
func (c *Client) GetValue(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, valuePrefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// SetValue 设置键值（不过期）
func (c *Client) SetValue(ctx context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidKey
	}
	return c.rdb.Set(ctx, valuePrefix+key, value, 0).Err()
}

// DeleteValue 删除一个或多个键
func (c *Client) DeleteValue(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = valuePrefix + k
	}
	return c.rdb.Del(ctx, full...).Err()
}
