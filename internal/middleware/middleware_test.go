package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fitlog/backend/internal/monitoring"
	"fitlog/backend/internal/ratelimit"
	"fitlog/backend/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	t.Run("生成新的ID", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get(RequestIDHeader)
		_, err := ulid.ParseStrict(id)
		assert.NoError(t, err)
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("沿用合法的客户端ID", func(t *testing.T) {
		id := NewRequestID()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, id)
		rec := serve(r, req)
		assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
	})

	t.Run("替换非法的客户端ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "not-a-ulid")
		rec := serve(r, req)
		assert.NotEqual(t, "not-a-ulid", rec.Header().Get(RequestIDHeader))
	})

	t.Run("ID按时间递增", func(t *testing.T) {
		a, b := NewRequestID(), NewRequestID()
		assert.Less(t, a, b)
	})
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(16))
	r.POST("/", func(c *gin.Context) {
		buf := make([]byte, 64)
		_, err := c.Request.Body.Read(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	t.Run("未超出限制", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "16", rec.Header().Get("X-Max-Body-Size"))
	})

	t.Run("Content-Length超出限制", func(t *testing.T) {
		rec := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32))))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "exceeds maximum size")
	})
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(memory.NewStoreWithClock(func() time.Time { return now }), 2, time.Hour, zap.NewNop())
	metrics := monitoring.NewMetrics()

	r := gin.New()
	r.Use(RateLimit(limiter, metrics, zap.NewNop()))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	newReq := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip + ":12345"
		return req
	}

	rec := serve(r, newReq("10.0.0.1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(r, newReq("10.0.0.1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(r, newReq("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Too many requests, please try again later.", body["error"])
	assert.Equal(t, "1704099600", rec.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, float64(1), counterValue(t, metrics.RateLimitBlocks))

	// 其他 IP 不受影响
	rec = serve(r, newReq("10.0.0.2"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMonitoringMiddleware(t *testing.T) {
	metrics := monitoring.NewMetrics()
	mm := NewMonitoringMiddleware(metrics, zap.NewNop())

	r := gin.New()
	r.Use(RecoveryHandler(zap.NewNop()), mm.PanicRecovery(), mm.HTTPMetrics())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), counterValue(t, metrics.HTTPRequestsTotal.WithLabelValues("GET", "/ok", "200")))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Server error processing suggestion")
	assert.Equal(t, float64(1), counterValue(t, metrics.PanicsTotal))

	serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, float64(1), counterValue(t, metrics.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}
