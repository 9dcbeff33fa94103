package memory

import (
	"context"
	"sync"
	"time"

	"fitlog/backend/internal/storage"
)

// cleanupInterval 过期限流条目的清理间隔
const cleanupInterval = 5 * time.Minute

// Store 使用内存保存限流计数与键值数据，用于单实例部署和测试。
type Store struct {
	mu sync.RWMutex

	// 速率限制相关
	rateLimits        map[string]*rateLimitEntry
	rateLimitsCleanup time.Time // 下次清理过期速率限制的时间

	values map[string]string

	now func() time.Time
}

// rateLimitEntry 速率限制条目
type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

var (
	_ storage.RateLimitRepository = (*Store)(nil)
	_ storage.KeyValueRepository  = (*Store)(nil)
)

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock 使用指定时钟创建内存存储，测试中用于推进时间
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		rateLimits:        make(map[string]*rateLimitEntry),
		rateLimitsCleanup: now().Add(cleanupInterval),
		values:            make(map[string]string),
		now:               now,
	}
}

// ========== 限流 ==========

// IncrementRateLimit 增加限流计数
func (s *Store) IncrementRateLimit(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	if key == "" {
		return 0, time.Time{}, storage.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if now.After(s.rateLimitsCleanup) {
		s.purgeExpiredLocked(now)
		s.rateLimitsCleanup = now.Add(cleanupInterval)
	}

	entry, exists := s.rateLimits[key]
	if !exists || !now.Before(entry.ExpiresAt) {
		entry = &rateLimitEntry{
			Count:     1,
			ExpiresAt: now.Add(window),
		}
		s.rateLimits[key] = entry
		return entry.Count, entry.ExpiresAt, nil
	}

	entry.Count++
	return entry.Count, entry.ExpiresAt, nil
}

// GetRateLimit 获取限流计数，窗口已结束时返回 0
func (s *Store) GetRateLimit(_ context.Context, key string) (int64, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.rateLimits[key]
	if !exists || !s.now().Before(entry.ExpiresAt) {
		return 0, time.Time{}, nil
	}

	return entry.Count, entry.ExpiresAt, nil
}

// CleanupExpired 删除所有已过期的限流条目，返回删除数量
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.purgeExpiredLocked(s.now())
}

func (s *Store) purgeExpiredLocked(now time.Time) int {
	removed := 0
	for k, v := range s.rateLimits {
		if !now.Before(v.ExpiresAt) {
			delete(s.rateLimits, k)
			removed++
		}
	}
	return removed
}

// ========== 键值 ==========

// GetValue 获取键值
func (s *Store) GetValue(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

// SetValue 设置键值
func (s *Store) SetValue(_ context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// DeleteValue 删除一个或多个键，不存在的键被忽略
func (s *Store) DeleteValue(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}
