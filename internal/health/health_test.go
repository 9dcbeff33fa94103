package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthChecker_CheckHealth(t *testing.T) {
	t.Run("全部正常", func(t *testing.T) {
		hc := NewHealthChecker(zap.NewNop())
		hc.AddReadinessCheck("redis", PingCheck(fakePinger{}))
		hc.AddReadinessCheck("staging", WritableCheck(func() error { return nil }))

		healthy, results := hc.CheckHealth()
		assert.True(t, healthy)
		assert.Equal(t, "OK", results["redis"])
		assert.Equal(t, "OK", results["staging"])
		assert.NotEmpty(t, results["timestamp"])
	})

	t.Run("单项失败", func(t *testing.T) {
		hc := NewHealthChecker(nil)
		hc.AddReadinessCheck("redis", PingCheck(fakePinger{err: errors.New("connection refused")}))
		hc.AddReadinessCheck("staging", WritableCheck(func() error { return nil }))

		healthy, results := hc.CheckHealth()
		assert.False(t, healthy)
		assert.Equal(t, "ERROR: connection refused", results["redis"])
		assert.Equal(t, "OK", results["staging"])
	})
}

func TestHealthChecker_Handler(t *testing.T) {
	hc := NewHealthChecker(zap.NewNop())
	hc.AddReadinessCheck("staging", WritableCheck(func() error { return errors.New("read-only") }))

	rec := httptest.NewRecorder()
	hc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	hc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
