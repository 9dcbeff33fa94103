// Package webhook 负责把结构化消息投递到外部聊天 Webhook。
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"fitlog/backend/internal/domain"
)

// maxErrorBody 记录到错误中的响应体最大字节数
const maxErrorBody = 512

// Options Webhook 客户端参数
type Options struct {
	Timeout    time.Duration // 单次请求超时，默认 10 秒
	RPS        float64       // 每秒请求数上限，<=0 表示不限制
	Burst      int           // 突发请求数，默认 1
	HTTPClient *http.Client  // 可选，测试时注入
}

// Client Webhook 投递客户端，可并发使用
type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

// New 创建 Webhook 客户端
func New(url string, opts Options, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	return &Client{
		url:        url,
		httpClient: httpClient,
		limiter:    limiter,
		log:        log,
	}
}

// Send 投递一条消息。
//
// 没有文件时以 JSON 发送；有文件时以 multipart/form-data 发送，
// payload_json 部分携带消息本体，files[n] 部分携带各文件。
// 网络错误或非 2xx 响应返回 KindTransport 类型的 *domain.Error。
func (c *Client) Send(ctx context.Context, payload *domain.WebhookPayload) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.NewTransportError(0, fmt.Errorf("wait for webhook rate limiter: %w", err))
	}

	body, contentType, err := Encode(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewTransportError(0, fmt.Errorf("send webhook request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn("webhook rejected message",
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(startTime)),
			zap.String("body", strings.TrimSpace(string(excerpt))),
		)
		return domain.NewTransportError(resp.StatusCode,
			fmt.Errorf("webhook returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt))))
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	c.log.Debug("webhook delivered",
		zap.Int("status", resp.StatusCode),
		zap.Int("files", len(payload.Files)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// Encode 将消息编码为请求体，返回请求体和 Content-Type
func Encode(payload *domain.WebhookPayload) ([]byte, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	if !payload.HasFiles() {
		return body, "application/json", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	jsonHeader := make(textproto.MIMEHeader)
	jsonHeader.Set("Content-Disposition", `form-data; name="payload_json"`)
	jsonHeader.Set("Content-Type", "application/json")
	part, err := w.CreatePart(jsonHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(body); err != nil {
		return nil, "", err
	}

	for i, f := range payload.Files {
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[%d]"; filename="%s"`, i, escapeQuotes(f.Name)))
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
