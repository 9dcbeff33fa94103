// Package ratelimit 实现按客户端标识的固定窗口限流。
package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fitlog/backend/internal/storage"
)

// Decision 一次限流判断的结果
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter 固定窗口限流器：每个键在一个窗口内最多放行 limit 次
type Limiter struct {
	repo   storage.RateLimitRepository
	limit  int
	window time.Duration
	log    *zap.Logger
}

// New 创建限流器
func New(repo storage.RateLimitRepository, limit int, window time.Duration, log *zap.Logger) *Limiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{repo: repo, limit: limit, window: window, log: log}
}

// Allow 为 key 计数一次并判断是否放行。
//
// 计数存储出错时放行请求并记录警告，不因限流存储故障拒绝用户。
func (l *Limiter) Allow(ctx context.Context, key string) Decision {
	count, resetAt, err := l.repo.IncrementRateLimit(ctx, key, l.window)
	if err != nil {
		l.log.Warn("rate limit store unavailable, allowing request",
			zap.String("key", key),
			zap.Error(err),
		)
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAt: time.Now().Add(l.window)}
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// Limit 返回窗口内允许的次数
func (l *Limiter) Limit() int {
	return l.limit
}

// Window 返回窗口长度
func (l *Limiter) Window() time.Duration {
	return l.window
}
