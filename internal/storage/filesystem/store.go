package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fitlog/backend/internal/storage"
)

// Store 将上传的附件暂存到本地目录
//
// 目录结构: {basePath}/uploads/{YYYY-MM-DD}/{name}
type Store struct {
	basePath string
	now      func() time.Time
}

var _ storage.UploadRepository = (*Store)(nil)

// NewStore 创建文件系统暂存实例，基础目录不存在时自动创建
func NewStore(basePath string) (*Store, error) {
	if err := ValidatePath(basePath); err != nil {
		return nil, fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	if err := os.MkdirAll(filepath.Join(absPath, "uploads"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{basePath: absPath, now: time.Now}, nil
}

// BasePath 返回暂存根目录
func (s *Store) BasePath() string {
	return s.basePath
}

// SaveUpload 保存附件，返回相对于根目录的路径
func (s *Store) SaveUpload(ctx context.Context, name, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	safe := SanitizeFilename(name)
	if safe == "unnamed" && strings.TrimSpace(name) == "" {
		return "", storage.ErrInvalidUploadName
	}

	dir := filepath.Join(s.basePath, "uploads", s.now().Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	target := filepath.Join(dir, safe)
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close upload: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to move upload: %w", err)
	}

	rel, err := filepath.Rel(s.basePath, target)
	if err != nil {
		return target, nil
	}
	return filepath.ToSlash(rel), nil
}

// CleanupExpired 删除修改时间早于 maxAge 的暂存文件，返回删除数量
func (s *Store) CleanupExpired(maxAge time.Duration) (int, error) {
	uploads := filepath.Join(s.basePath, "uploads")
	cutoff := s.now().Add(-maxAge)
	count := 0

	err := filepath.WalkDir(uploads, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("cleanup uploads: %w", err)
	}

	s.removeEmptyDirs(uploads)
	return count, nil
}

// removeEmptyDirs 删除空的日期目录
func (s *Store) removeEmptyDirs(uploads string) {
	entries, err := os.ReadDir(uploads)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(uploads, e.Name())
		if children, err := os.ReadDir(dir); err == nil && len(children) == 0 {
			os.Remove(dir)
		}
	}
}

// CheckWritable 检查暂存目录可写，用于健康检查
func (s *Store) CheckWritable() error {
	f, err := os.CreateTemp(filepath.Join(s.basePath, "uploads"), ".writecheck-*")
	if err != nil {
		return fmt.Errorf("staging directory not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
