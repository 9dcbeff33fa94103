package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 建议提交的结果标签
const (
	OutcomeForwarded = "forwarded" // 首次投递成功
	OutcomeRetried   = "retried"   // 重试后投递成功
	OutcomeFailed    = "failed"    // 重试后仍失败
	OutcomeRejected  = "rejected"  // 校验或附件检查未通过
)

// Metrics 监控指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 建议指标
	SuggestionsTotal *prometheus.CounterVec
	RejectionsTotal  *prometheus.CounterVec
	AttachmentSize   *prometheus.HistogramVec
	SuggestionLength prometheus.Histogram

	// Webhook 指标
	WebhookDuration *prometheus.HistogramVec

	// 暂存指标
	StagingTotal *prometheus.CounterVec

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks prometheus.Counter
}

// NewMetrics 创建监控指标，注册到独立的注册表（含 Go 运行时与进程指标）
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitlog_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitlog_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitlog_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitlog_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 6),
			},
			[]string{"method", "endpoint"},
		),

		SuggestionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitlog_suggestions_total",
				Help: "Total number of suggestions by outcome",
			},
			[]string{"outcome"},
		),

		RejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitlog_suggestion_rejections_total",
				Help: "Total number of rejected suggestions by error kind",
			},
			[]string{"kind"},
		),

		AttachmentSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitlog_attachment_size_bytes",
				Help:    "Attachment size in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 2, 14),
			},
			[]string{"type"},
		),

		SuggestionLength: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fitlog_suggestion_length_chars",
				Help:    "Suggestion length in characters after sanitizing",
				Buckets: []float64{10, 50, 200, 600, 1200, 2000, 3000},
			},
		),

		WebhookDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitlog_webhook_duration_seconds",
				Help:    "Webhook delivery duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),

		StagingTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitlog_staging_total",
				Help: "Total number of attachment staging attempts by result",
			},
			[]string{"result"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitlog_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fitlog_panics_total",
				Help: "Total number of recovered panics",
			},
		),

		RateLimitBlocks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fitlog_rate_limit_blocks_total",
				Help: "Total number of submissions blocked by the rate limiter",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, requestSize, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordOutcome 记录一次提交的最终结果
func (m *Metrics) RecordOutcome(outcome string) {
	m.SuggestionsTotal.WithLabelValues(outcome).Inc()
}

// RecordRejection 记录一次被拒绝的提交
func (m *Metrics) RecordRejection(kind string) {
	m.SuggestionsTotal.WithLabelValues(OutcomeRejected).Inc()
	m.RejectionsTotal.WithLabelValues(kind).Inc()
}

// RecordAttachmentSize 记录附件大小
func (m *Metrics) RecordAttachmentSize(contentType string, size int64) {
	m.AttachmentSize.WithLabelValues(contentType).Observe(float64(size))
}

// RecordSuggestionLength 记录清洗后的建议长度
func (m *Metrics) RecordSuggestionLength(chars int) {
	m.SuggestionLength.Observe(float64(chars))
}

// RecordWebhook 记录一次 Webhook 调用
func (m *Metrics) RecordWebhook(success bool, duration time.Duration) {
	m.WebhookDuration.WithLabelValues(resultLabel(success)).Observe(duration.Seconds())
}

// ObserveStaging 记录一次附件暂存结果
func (m *Metrics) ObserveStaging(success bool) {
	m.StagingTotal.WithLabelValues(resultLabel(success)).Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock() {
	m.RateLimitBlocks.Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
