// Package client 实现表单控制器到中继端点的提交。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"fitlog/backend/internal/domain"
)

// maxResponseBody 读取中继响应的最大字节数
const maxResponseBody = 64 * 1024

// knownErrors 中继返回的错误消息到哨兵错误的映射
var knownErrors = map[string]error{
	domain.ErrInvalidSubmission.Error(): domain.ErrInvalidSubmission,
	domain.ErrMissingFields.Error():     domain.ErrMissingFields,
	domain.ErrInvalidEmail.Error():      domain.ErrInvalidEmail,
	domain.ErrFileTooLarge.Error():      domain.ErrFileTooLarge,
	domain.ErrFileType.Error():          domain.ErrFileType,
	domain.ErrTooManyRequests.Error():   domain.ErrTooManyRequests,
	domain.ErrProcessingFailed.Error():  domain.ErrProcessingFailed,
	domain.ErrServer.Error():            domain.ErrServer,
}

// RelayClient 以 multipart 表单向中继端点提交建议
type RelayClient struct {
	url        string
	httpClient *http.Client
	log        *zap.Logger
}

// NewRelayClient 创建中继客户端
func NewRelayClient(url string, timeout time.Duration, log *zap.Logger) *RelayClient {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RelayClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Submit 提交一次建议。
//
// 400 返回校验或附件错误，429 返回限流错误，其他失败返回传输错误。
func (c *RelayClient) Submit(ctx context.Context, s *domain.RawSubmission) (*domain.SubmissionResult, error) {
	body, contentType, err := EncodeForm(s)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create relay request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("relay request failed", zap.Error(err))
		return nil, domain.NewTransportError(0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, domain.NewTransportError(resp.StatusCode, fmt.Errorf("read relay response: %w", err))
	}

	if resp.StatusCode == http.StatusOK {
		var result domain.SubmissionResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, domain.NewTransportError(resp.StatusCode, fmt.Errorf("decode relay response: %w", err))
		}
		return &result, nil
	}

	return nil, responseError(resp.StatusCode, data)
}

// Limits 查询中继端点公开的提交限制（GET <url>/limits）
func (c *RelayClient) Limits(ctx context.Context) (*domain.Limits, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.url, "/")+"/limits", nil)
	if err != nil {
		return nil, fmt.Errorf("create limits request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTransportError(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewTransportError(resp.StatusCode, fmt.Errorf("relay returned HTTP %d", resp.StatusCode))
	}

	var limits domain.Limits
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&limits); err != nil {
		return nil, domain.NewTransportError(resp.StatusCode, fmt.Errorf("decode limits: %w", err))
	}
	limits.RateWindow = time.Duration(limits.RateWindowSeconds) * time.Second
	return &limits, nil
}

// responseError 将中继的错误响应转换为分类错误
func responseError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)

	sentinel, known := knownErrors[payload.Error]
	if !known {
		sentinel = errors.New(payload.Error)
		if payload.Error == "" {
			sentinel = fmt.Errorf("relay returned HTTP %d", status)
		}
	}

	switch {
	case status == http.StatusTooManyRequests:
		return domain.NewRateLimitError()
	case status == http.StatusBadRequest && (sentinel == domain.ErrFileTooLarge || sentinel == domain.ErrFileType):
		return domain.NewAttachmentError(sentinel)
	case status == http.StatusBadRequest:
		return domain.NewValidationError(fieldFor(sentinel), sentinel)
	default:
		return domain.NewTransportError(status, sentinel)
	}
}

func fieldFor(err error) string {
	switch err {
	case domain.ErrInvalidEmail:
		return domain.FieldEmail
	case domain.ErrMissingFields:
		return domain.FieldSuggestion
	}
	return ""
}

// EncodeForm 编码为中继端点接受的 multipart 表单
func EncodeForm(s *domain.RawSubmission) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{domain.FieldName, s.Name},
		{domain.FieldEmail, s.Email},
		{domain.FieldCategory, s.Category},
		{domain.FieldPriority, s.Priority},
		{domain.FieldSuggestion, s.Suggestion},
		{domain.FieldConsent, s.Consent},
		{domain.FieldMetadata, s.ClientMetadata},
		{domain.FieldHoneypot, s.Honeypot},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	if s.File != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, domain.FieldFile, quoteEscaper(s.File.Filename)))
		h.Set("Content-Type", s.File.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(s.File.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func quoteEscaper(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
