package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fitlog/backend/internal/domain"
	"fitlog/backend/internal/monitoring"
	"fitlog/backend/internal/ratelimit"
)

// RateLimit 按客户端 IP 的固定窗口限流，并设置 X-RateLimit-* 响应头
func RateLimit(limiter *ratelimit.Limiter, metrics *monitoring.Metrics, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := limiter.Allow(c.Request.Context(), c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			if metrics != nil {
				metrics.RecordRateLimitBlock()
			}
			log.Warn("rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("request_id", GetRequestID(c)),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": domain.ErrTooManyRequests.Error(),
			})
			return
		}

		c.Next()
	}
}
