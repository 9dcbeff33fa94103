package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fitlog/backend/internal/storage"
)

// KVFile 以单个 JSON 文件保存的键值存储，每次写入整体落盘
type KVFile struct {
	mu   sync.Mutex
	path string
}

var _ storage.KeyValueRepository = (*KVFile)(nil)

// NewKVFile 创建 JSON 文件键值存储，父目录不存在时自动创建
func NewKVFile(path string) (*KVFile, error) {
	if err := ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid kv path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create kv directory: %w", err)
	}
	return &KVFile{path: path}, nil
}

// GetValue 获取键值
func (k *KVFile) GetValue(_ context.Context, key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	values, err := k.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// SetValue 设置键值
func (k *KVFile) SetValue(_ context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidKey
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	values, err := k.read()
	if err != nil {
		return err
	}
	values[key] = value
	return k.write(values)
}

// DeleteValue 删除一个或多个键
func (k *KVFile) DeleteValue(_ context.Context, keys ...string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	values, err := k.read()
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(values, key)
	}
	return k.write(values)
}

func (k *KVFile) read() (map[string]string, error) {
	data, err := os.ReadFile(k.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read kv file: %w", err)
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to decode kv file: %w", err)
	}
	return values, nil
}

func (k *KVFile) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp := k.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write kv file: %w", err)
	}
	return os.Rename(tmp, k.path)
}
