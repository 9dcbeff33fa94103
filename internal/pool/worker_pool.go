package pool

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPool 固定数量的后台协程，按提交顺序执行任务
//
// 用于执行不阻塞请求的后台工作（例如附件暂存），限制同时运行的协程数量。
type WorkerPool struct {
	maxWorkers int
	taskQueue  chan func(ctx context.Context)
	wg         sync.WaitGroup
	log        *zap.Logger

	mu      sync.RWMutex
	stopped bool
}

// NewWorkerPool 创建协程池
//
// 参数:
//   - maxWorkers: 最大协程数
//   - queueSize: 任务队列大小
func NewWorkerPool(maxWorkers, queueSize int, log *zap.Logger) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		maxWorkers: maxWorkers,
		taskQueue:  make(chan func(ctx context.Context), queueSize),
		log:        log,
	}
}

// Start 启动协程池，ctx 会传给每个任务
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// TrySubmit 尝试提交任务
//
// 如果队列已满或协程池已停止，立即返回 false
func (p *WorkerPool) TrySubmit(task func(ctx context.Context)) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return false
	}
	select {
	case p.taskQueue <- task:
		return true
	default:
		return false
	}
}

// Stop 停止接收任务，等待队列中的任务执行完毕
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.taskQueue)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// worker 工作协程，ctx 结束后仍会把队列中剩余任务执行完
func (p *WorkerPool) worker(ctx context.Context) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		p.run(ctx, task)
	}
}

func (p *WorkerPool) run(ctx context.Context, task func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("background task panicked", zap.Any("panic", r))
		}
	}()
	task(ctx)
}
