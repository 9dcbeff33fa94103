package format

import (
	"fmt"
	"time"

	"fitlog/backend/internal/domain"
)

// 优先级对应的消息颜色
const (
	ColorHigh   = 0xE53E3E
	ColorMedium = 0xF6C244
	ColorLow    = 0x38A169
)

const (
	truncationMarker = "... *(full text attached)*"
	fullTextFilename = "full-suggestion.txt"
	emptyEmailValue  = "—"
)

// Formatter 构建发往 Webhook 的结构化消息
type Formatter struct {
	appName    string
	appVersion string
	now        func() time.Time
}

// NewFormatter 创建格式化器
//
// 参数:
//   - appName: 页脚中显示的应用名
//   - appVersion: 页脚中显示的版本号
func NewFormatter(appName, appVersion string) *Formatter {
	return &Formatter{
		appName:    appName,
		appVersion: appVersion,
		now:        time.Now,
	}
}

// PriorityColor 返回优先级对应的颜色，无法识别的优先级使用 Medium 的颜色
func PriorityColor(priority domain.Priority) int {
	switch priority {
	case domain.PriorityHigh:
		return ColorHigh
	case domain.PriorityLow:
		return ColorLow
	default:
		return ColorMedium
	}
}

// FormatMessage 根据已清洗的提交构建结构化消息
//
// attachmentURL 为空时不添加图片引用。
func (f *Formatter) FormatMessage(p domain.SubmissionPayload, submissionID, attachmentURL string) domain.StructuredMessage {
	name := p.Name
	if name == "" {
		name = domain.DefaultName
	}
	email := p.Email
	if email == "" {
		email = emptyEmailValue
	}

	msg := domain.StructuredMessage{
		Title: fmt.Sprintf("New Suggestion — %s — %s", p.Category, p.Priority),
		Color: PriorityColor(p.Priority),
		Fields: []domain.EmbedField{
			{Name: "Name", Value: name, Inline: true},
			{Name: "Email", Value: email, Inline: true},
			{Name: "Category", Value: p.Category, Inline: true},
			{Name: "Priority", Value: string(p.Priority), Inline: true},
		},
		Description: Description(p.Suggestion),
		Timestamp:   f.now().UTC().Format(time.RFC3339),
		Footer:      domain.EmbedFooter{Text: f.footer(submissionID)},
	}

	if attachmentURL != "" {
		msg.Image = &domain.EmbedImage{URL: attachmentURL}
	}

	return msg
}

// Description 返回消息描述：超过 domain.DescriptionLimit 个字符时截断并追加提示
func Description(suggestion string) string {
	if RuneLen(suggestion) <= domain.DescriptionLimit {
		return suggestion
	}
	return Truncate(suggestion, domain.DescriptionLimit) + truncationMarker
}

// NeedsFullText 建议文本是否需要以单独文件附上全文
func NeedsFullText(suggestion string) bool {
	return RuneLen(suggestion) > domain.DescriptionLimit
}

// FullTextAttachment 构建包含完整建议文本的文本文件。
// 纯文本文件不做 markdown 渲染，suggestion 应传入未转义的原文。
func FullTextAttachment(submissionID, suggestion string) domain.FileAttachment {
	content := fmt.Sprintf("Full Suggestion (ID: %s)\n\n%s", submissionID, suggestion)
	return domain.FileAttachment{
		Name:        fullTextFilename,
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(content),
	}
}

func (f *Formatter) footer(submissionID string) string {
	if f.appName == "" {
		return fmt.Sprintf("v%s | ID: %s", f.appVersion, submissionID)
	}
	return fmt.Sprintf("%s v%s | ID: %s", f.appName, f.appVersion, submissionID)
}
