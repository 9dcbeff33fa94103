package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"fitlog/backend/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);`

// Store 基于 SQLite 的本地键值存储，命令行客户端用它保存草稿
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.KeyValueRepository = (*Store)(nil)

// Open 打开（或创建）path 处的数据库并建表
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// 单连接，避免 :memory: 下每个连接各自一份数据
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if path != ":memory:" {
		_ = os.Chmod(path, 0o600)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// GetValue 获取键值
func (s *Store) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get value: %w", err)
	}
	return value, true, nil
}

// SetValue 插入或覆盖键值
func (s *Store) SetValue(ctx context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidKey
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	return nil
}

// DeleteValue 删除一个或多个键
func (s *Store) DeleteValue(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete values: %w", err)
	}
	return nil
}
