package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

const checkTimeout = 5 * time.Second

// Check 单项健康检查
type Check func(ctx context.Context) error

// Pinger 支持连通性检查的依赖（Redis、对象存储等）
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	logger *zap.Logger

	mu     sync.RWMutex
	checks map[string]Check
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}

	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		logger: logger,
		checks: make(map[string]Check),
	}

	// 进程存活只看 goroutine 是否失控
	hc.health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(10000))

	return hc
}

// AddReadinessCheck 注册就绪检查，每次执行带超时
func (hc *HealthChecker) AddReadinessCheck(name string, check Check) {
	hc.mu.Lock()
	hc.checks[name] = check
	hc.mu.Unlock()

	hc.health.AddReadinessCheck(name, func() error {
		return run(check)
	})
}

// Handler 返回健康检查处理器（/live 与 /ready）
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// CheckHealth 执行所有就绪检查，返回整体是否健康及各项结果
func (hc *HealthChecker) CheckHealth() (bool, map[string]string) {
	hc.mu.RLock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	hc.mu.RUnlock()
	sort.Strings(names)

	healthy := true
	results := make(map[string]string, len(names)+1)
	for _, name := range names {
		hc.mu.RLock()
		check := hc.checks[name]
		hc.mu.RUnlock()

		if err := run(check); err != nil {
			healthy = false
			results[name] = fmt.Sprintf("ERROR: %v", err)
			hc.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			continue
		}
		results[name] = "OK"
	}
	results["timestamp"] = time.Now().Format(time.RFC3339)

	return healthy, results
}

func run(check Check) error {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	return check(ctx)
}

// PingCheck 依赖连通性检查
func PingCheck(p Pinger) Check {
	return p.Ping
}

// WritableCheck 本地目录可写检查
func WritableCheck(fn func() error) Check {
	return func(context.Context) error {
		return fn()
	}
}
