package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fitlog/backend/internal/config"
	"fitlog/backend/internal/health"
	"fitlog/backend/internal/middleware"
	"fitlog/backend/internal/monitoring"
	"fitlog/backend/internal/ratelimit"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config      *config.Config
	Suggestions SuggestionSubmitter
	Limiter     *ratelimit.Limiter
	Metrics     *monitoring.Metrics
	Health      *health.HealthChecker // 可为 nil
	Logger      *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// 限流按 ClientIP 计数：只有来自可信代理的转发头才会被采信，未配置时使用套接字对端地址
	var proxies []string
	if len(deps.Config.Server.TrustedProxies) > 0 {
		proxies = deps.Config.Server.TrustedProxies
	}
	if err := router.SetTrustedProxies(proxies); err != nil {
		log.Error("invalid trusted proxies, ignoring forwarded headers", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	mm := middleware.NewMonitoringMiddleware(metrics, log)

	router.Use(middleware.RecoveryHandler(log))
	router.Use(mm.PanicRecovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())
	router.Use(mm.HTTPMetrics())

	// 全局上限为附件上限的两倍，超出直接 413；提交路由内部再按附件上限 + 1MiB 截断
	router.Use(middleware.BodySizeLimit(2*deps.Config.Relay.MaxFileSize + multipartOverhead))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			middleware.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	router.Use(gincors.New(corsConfig))

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": MsgMethodNotAllowed})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": MsgNotFound})
	})

	// 健康检查
	router.GET("/health", healthHandler(deps.Health))
	if deps.Health != nil {
		router.GET("/live", gin.WrapH(deps.Health.Handler()))
		router.GET("/ready", gin.WrapH(deps.Health.Handler()))
	}

	// Prometheus 指标
	router.GET("/metrics", gin.WrapH(metrics.HTTPHandler()))

	path := deps.Config.Relay.Path
	if path == "" {
		path = "/api/suggestions"
	}

	handler := NewSuggestionHandler(deps.Suggestions, deps.Config.Relay.MaxFileSize, log)
	router.POST(path, middleware.RateLimit(deps.Limiter, metrics, log), handler.Submit)
	router.GET(path+"/limits", handler.Limits)

	return router
}

func healthHandler(hc *health.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hc == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		healthy, checks := hc.CheckHealth()
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": checks})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
	}
}
