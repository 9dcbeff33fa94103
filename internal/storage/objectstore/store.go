package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"fitlog/backend/internal/config"
	"fitlog/backend/internal/storage"
)

// Store 将上传的附件暂存到 S3 兼容的对象存储
type Store struct {
	mc     *minio.Client
	bucket string
	prefix string
	now    func() time.Time
}

var _ storage.UploadRepository = (*Store)(nil)

// New 创建对象存储暂存实例
func New(cfg config.MinIOConfig) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Store{mc: mc, bucket: cfg.Bucket, prefix: "uploads", now: time.Now}, nil
}

// EnsureBucket 桶不存在时创建
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		return s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Ping 检查桶是否可访问，用于健康检查
func (s *Store) Ping(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

// SaveUpload 上传附件，返回 s3://bucket/key 形式的位置
func (s *Store) SaveUpload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "/\\") {
		return "", storage.ErrInvalidUploadName
	}

	key := ObjectKey(s.prefix, s.now(), name)
	_, err := s.mc.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// ObjectKey 按日期分区构建对象键
func ObjectKey(prefix string, t time.Time, name string) string {
	t = t.UTC()
	return fmt.Sprintf("%s/year=%04d/month=%02d/day=%02d/%s",
		prefix, t.Year(), t.Month(), t.Day(), name)
}
