package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"fitlog/backend/internal/config"
	"fitlog/backend/internal/domain"
	"fitlog/backend/internal/format"
	"fitlog/backend/internal/monitoring"
	"fitlog/backend/internal/validate"
)

// Sender 投递 Webhook 消息
type Sender interface {
	Send(ctx context.Context, payload *domain.WebhookPayload) error
}

// Stager 异步暂存附件
type Stager interface {
	Stage(submissionID string, a *domain.Attachment)
}

// SuggestionService 中继端点的提交流程：校验、清洗、格式化、暂存与投递。
type SuggestionService struct {
	cfg       config.RelayConfig
	chain     validate.Chain
	formatter *format.Formatter
	sender    Sender
	stager    Stager
	metrics   *monitoring.Metrics
	log       *zap.Logger
	newID     func() string
}

// NewSuggestionService 创建提交服务。stager 与 metrics 可为 nil。
func NewSuggestionService(cfg config.RelayConfig, sender Sender, stager Stager, metrics *monitoring.Metrics, log *zap.Logger) *SuggestionService {
	if log == nil {
		log = zap.NewNop()
	}
	allowed := cfg.AllowedTypes
	if len(allowed) == 0 {
		allowed = domain.DefaultAllowedTypes
	}
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = domain.MaxFileSize
	}
	cfg.AllowedTypes = allowed
	cfg.MaxFileSize = maxSize

	return &SuggestionService{
		cfg:       cfg,
		chain:     validate.ServerChain(maxSize, allowed),
		formatter: format.NewFormatter(cfg.AppName, cfg.AppVersion),
		sender:    sender,
		stager:    stager,
		metrics:   metrics,
		log:       log,
		newID:     format.NewSubmissionID,
	}
}

// Limits 返回对外公开的提交限制
func (s *SuggestionService) Limits() domain.Limits {
	return domain.Limits{
		MaxFileSize:         s.cfg.MaxFileSize,
		AllowedTypes:        s.cfg.AllowedTypes,
		MinSuggestionLength: domain.MinSuggestionLength,
		MaxTextLength:       domain.MaxTextLength,
		RateLimit:           s.cfg.RateLimit,
		RateWindow:          s.cfg.RateWindow,
		RateWindowSeconds:   int64(s.cfg.RateWindow / time.Second),
	}
}

// Submit 处理一次原始提交。
//
// 投递失败时从原始数据重新构建消息并重试一次，仍失败则返回 KindTransport 错误。
// 校验失败返回 KindValidation 或 KindAttachment 错误，此时不发起任何网络请求。
func (s *SuggestionService) Submit(ctx context.Context, raw *domain.RawSubmission) (*domain.SubmissionResult, error) {
	if raw == nil {
		return nil, domain.NewValidationError("", domain.ErrInvalidSubmission)
	}

	if err := s.chain.Validate(raw); err != nil {
		s.recordRejection(err)
		s.log.Info("suggestion rejected",
			zap.String("client_ip", raw.ClientIP),
			zap.Error(err),
		)
		return nil, err
	}

	submissionID := s.newID()
	payload := s.Prepare(raw)
	if s.metrics != nil {
		s.metrics.RecordSuggestionLength(format.RuneLen(payload.Suggestion))
		if payload.Attachment != nil {
			s.metrics.RecordAttachmentSize(domain.NormalizeContentType(payload.Attachment.ContentType), payload.Attachment.Size())
		}
	}

	if payload.Attachment != nil && s.stager != nil {
		s.stager.Stage(submissionID, payload.Attachment)
	}

	err := s.send(ctx, s.BuildWebhookPayload(payload, submissionID))
	if err == nil {
		s.recordOutcome(monitoring.OutcomeForwarded)
		s.log.Info("suggestion forwarded", zap.String("submission_id", submissionID))
		return forwarded(submissionID), nil
	}

	s.log.Warn("webhook delivery failed, retrying once",
		zap.String("submission_id", submissionID),
		zap.Error(err),
	)

	retryErr := s.send(ctx, s.BuildWebhookPayload(s.Prepare(raw), submissionID))
	if retryErr == nil {
		s.recordOutcome(monitoring.OutcomeRetried)
		s.log.Info("suggestion forwarded after retry", zap.String("submission_id", submissionID))
		return forwarded(submissionID), nil
	}

	s.recordOutcome(monitoring.OutcomeFailed)
	s.log.Error("webhook retry failed",
		zap.String("submission_id", submissionID),
		zap.Error(retryErr),
	)

	if domain.IsKind(retryErr, domain.KindTransport) {
		return nil, retryErr
	}
	return nil, domain.NewTransportError(0, retryErr)
}

// Prepare 清洗原始提交，生成待格式化的载荷
func (s *SuggestionService) Prepare(raw *domain.RawSubmission) domain.SubmissionPayload {
	name := format.Sanitize(strings.TrimSpace(raw.Name))
	if name == "" {
		name = domain.DefaultName
	}

	priority, _ := domain.ParsePriority(raw.Priority)

	return domain.SubmissionPayload{
		Name:       name,
		Email:      raw.Email,
		Category:   format.Sanitize(raw.Category),
		Priority:   priority,
		Suggestion: format.Sanitize(raw.Suggestion),
		FullText:   raw.Suggestion,
		Consent:    raw.Consent == "true",
		Attachment: raw.File,
		Metadata:   s.parseMetadata(raw.ClientMetadata),
	}
}

// BuildWebhookPayload 构建 Webhook 消息：超长建议附上全文文件，有附件时附上图片
func (s *SuggestionService) BuildWebhookPayload(p domain.SubmissionPayload, submissionID string) *domain.WebhookPayload {
	var (
		files         []domain.FileAttachment
		attachmentURL string
	)

	// 描述使用清洗后的文本，全文文件保留用户的原文
	if format.NeedsFullText(p.Suggestion) {
		text := p.FullText
		if text == "" {
			text = p.Suggestion
		}
		files = append(files, format.FullTextAttachment(submissionID, text))
	}

	if p.Attachment != nil {
		name := submissionID + "." + p.Attachment.Ext()
		files = append(files, domain.FileAttachment{
			Name:        name,
			ContentType: domain.NormalizeContentType(p.Attachment.ContentType),
			Data:        p.Attachment.Data,
		})
		attachmentURL = "attachment://" + name
	}

	return &domain.WebhookPayload{
		Embeds: []domain.StructuredMessage{s.formatter.FormatMessage(p, submissionID, attachmentURL)},
		Files:  files,
	}
}

// parseMetadata 解析客户端元数据，失败时返回空映射
func (s *SuggestionService) parseMetadata(raw string) map[string]any {
	metadata := make(map[string]any)
	if strings.TrimSpace(raw) == "" {
		return metadata
	}
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		s.log.Warn("invalid client metadata, ignoring", zap.Error(err))
		return make(map[string]any)
	}
	return metadata
}

func (s *SuggestionService) send(ctx context.Context, payload *domain.WebhookPayload) error {
	start := time.Now()
	err := s.sender.Send(ctx, payload)
	if s.metrics != nil {
		s.metrics.RecordWebhook(err == nil, time.Since(start))
	}
	return err
}

func (s *SuggestionService) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordOutcome(outcome)
	}
}

func (s *SuggestionService) recordRejection(err error) {
	if s.metrics == nil {
		return
	}
	kind := string(domain.KindOf(err))
	if kind == "" {
		kind = "unknown"
	}
	s.metrics.RecordRejection(kind)
}

func forwarded(submissionID string) *domain.SubmissionResult {
	return &domain.SubmissionResult{
		Status:       "ok",
		SubmissionID: submissionID,
		Forwarded:    true,
	}
}

// IsClientError 判断错误是否应以 4xx 返回给调用方
func IsClientError(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindAttachment, domain.KindRateLimit:
		return true
	}
	return errors.Is(err, domain.ErrInvalidSubmission)
}
