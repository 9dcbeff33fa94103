// Package staging 在后台暂存上传的附件，暂存结果不影响提交流程。
package staging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fitlog/backend/internal/domain"
	"fitlog/backend/internal/pool"
	"fitlog/backend/internal/storage"
)

// stageTimeout 单次暂存的超时
const stageTimeout = 30 * time.Second

// Observer 接收暂存结果，用于指标统计
type Observer interface {
	ObserveStaging(success bool)
}

// Stager 通过协程池异步写入暂存存储
type Stager struct {
	repo     storage.UploadRepository
	pool     *pool.WorkerPool
	observer Observer
	log      *zap.Logger
}

// New 创建暂存器并启动后台协程
func New(ctx context.Context, repo storage.UploadRepository, workers, queueSize int, log *zap.Logger) *Stager {
	if log == nil {
		log = zap.NewNop()
	}
	p := pool.NewWorkerPool(workers, queueSize, log)
	p.Start(ctx)
	return &Stager{repo: repo, pool: p, log: log}
}

// WithObserver 设置结果观察者
func (s *Stager) WithObserver(o Observer) *Stager {
	s.observer = o
	return s
}

// Stage 提交一次暂存任务并立即返回。
//
// 文件名为 "<submissionID>.<ext>"。队列已满或写入失败只记录日志。
func (s *Stager) Stage(submissionID string, a *domain.Attachment) {
	if s == nil || a == nil {
		return
	}

	name := StagedName(submissionID, a)
	data := append([]byte(nil), a.Data...)
	contentType := a.ContentType

	ok := s.pool.TrySubmit(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stageTimeout)
		defer cancel()

		location, err := s.repo.SaveUpload(ctx, name, contentType, data)
		if err != nil {
			s.log.Warn("failed to stage attachment",
				zap.String("submission_id", submissionID),
				zap.String("name", name),
				zap.Error(err),
			)
			s.observe(false)
			return
		}
		s.log.Debug("attachment staged",
			zap.String("submission_id", submissionID),
			zap.String("location", location),
		)
		s.observe(true)
	})
	if !ok {
		s.log.Warn("staging queue full, attachment not staged",
			zap.String("submission_id", submissionID),
		)
		s.observe(false)
	}
}

// Close 等待已提交的暂存任务完成
func (s *Stager) Close() {
	if s == nil {
		return
	}
	s.pool.Stop()
}

func (s *Stager) observe(success bool) {
	if s.observer != nil {
		s.observer.ObserveStaging(success)
	}
}

// StagedName 暂存文件名："<submissionID>.<ext>"
func StagedName(submissionID string, a *domain.Attachment) string {
	return submissionID + "." + a.Ext()
}
