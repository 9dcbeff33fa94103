package httptransport

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fitlog/backend/internal/domain"
	"fitlog/backend/internal/middleware"
)

// 表单字段与 multipart 边界的额外开销
const multipartOverhead = 1 << 20

// SuggestionSubmitter 提交服务
type SuggestionSubmitter interface {
	Submit(ctx context.Context, raw *domain.RawSubmission) (*domain.SubmissionResult, error)
	Limits() domain.Limits
}

// SuggestionHandler 建议提交处理器
type SuggestionHandler struct {
	svc         SuggestionSubmitter
	maxFileSize int64
	log         *zap.Logger
}

// NewSuggestionHandler 创建建议提交处理器
func NewSuggestionHandler(svc SuggestionSubmitter, maxFileSize int64, log *zap.Logger) *SuggestionHandler {
	if maxFileSize <= 0 {
		maxFileSize = domain.MaxFileSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SuggestionHandler{svc: svc, maxFileSize: maxFileSize, log: log}
}

// Submit 接收一次建议提交并转发到 Webhook
// POST /api/suggestions
func (h *SuggestionHandler) Submit(c *gin.Context) {
	raw, err := h.parse(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), raw)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Debug("suggestion accepted",
		zap.String("submission_id", result.SubmissionID),
		zap.String("request_id", middleware.GetRequestID(c)),
	)
	OK(c, http.StatusOK, result)
}

// Limits 返回当前提交限制
// GET /api/suggestions/limits
func (h *SuggestionHandler) Limits(c *gin.Context) {
	OK(c, http.StatusOK, h.svc.Limits())
}

// parse 读取 multipart 表单，请求体上限为附件上限 + 1MiB
func (h *SuggestionHandler) parse(c *gin.Context) (*domain.RawSubmission, error) {
	limit := h.maxFileSize + multipartOverhead
	if c.Request.ContentLength > limit {
		return nil, domain.NewAttachmentError(domain.ErrFileTooLarge)
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	if err := c.Request.ParseMultipartForm(limit); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.NewAttachmentError(domain.ErrFileTooLarge)
		}
		h.log.Info("malformed suggestion form", zap.Error(err))
		return nil, domain.NewValidationError("", domain.ErrInvalidSubmission)
	}

	form := c.Request.PostForm
	raw := &domain.RawSubmission{
		Name:           form.Get(domain.FieldName),
		Email:          form.Get(domain.FieldEmail),
		Category:       form.Get(domain.FieldCategory),
		Priority:       form.Get(domain.FieldPriority),
		Suggestion:     form.Get(domain.FieldSuggestion),
		Consent:        form.Get(domain.FieldConsent),
		ClientMetadata: form.Get(domain.FieldMetadata),
		Honeypot:       form.Get(domain.FieldHoneypot),
		ClientIP:       c.ClientIP(),
		ReceivedAt:     time.Now(),
	}

	if c.Request.MultipartForm != nil {
		files := c.Request.MultipartForm.File[domain.FieldFile]
		if len(files) > 1 {
			return nil, domain.NewValidationError(domain.FieldFile, domain.ErrInvalidSubmission)
		}
		if len(files) == 1 {
			attachment, err := readAttachment(files[0])
			if err != nil {
				return nil, err
			}
			raw.File = attachment
		}
	}

	return raw, nil
}

// readAttachment 读取上传的文件，浏览器提交的空文件输入视为没有附件
func readAttachment(fh *multipart.FileHeader) (*domain.Attachment, error) {
	if fh.Filename == "" && fh.Size == 0 {
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, domain.NewAttachmentError(domain.ErrInvalidSubmission)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.NewAttachmentError(domain.ErrInvalidSubmission)
	}

	return &domain.Attachment{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
