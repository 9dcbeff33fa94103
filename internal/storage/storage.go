package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidKey 键为空
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidUploadName 暂存文件名不合法
	ErrInvalidUploadName = errors.New("invalid upload name")
)

// RateLimitRepository 定义固定窗口限流计数的存取操作。
//
// 窗口从某个键的第一次计数开始，到 resetAt 结束；窗口结束后计数从 1 重新开始。
type RateLimitRepository interface {
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
	GetRateLimit(ctx context.Context, key string) (count int64, resetAt time.Time, err error)
}

// KeyValueRepository 定义字符串键值存取操作，草稿存储基于它实现。
type KeyValueRepository interface {
	// GetValue 返回键对应的值，ok 为 false 表示键不存在
	GetValue(ctx context.Context, key string) (value string, ok bool, err error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, keys ...string) error
}

// UploadRepository 定义上传附件的暂存操作。
type UploadRepository interface {
	// SaveUpload 保存文件，返回可供日志与排查使用的位置描述
	SaveUpload(ctx context.Context, name, contentType string, data []byte) (location string, err error)
}
