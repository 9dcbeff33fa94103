package domain

import "time"

// Priority 建议优先级
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// 表单字段名，客户端与中继端点共用
const (
	FieldName       = "name"
	FieldEmail      = "email"
	FieldCategory   = "category"
	FieldPriority   = "priority"
	FieldSuggestion = "suggestion"
	FieldConsent    = "consent"
	FieldMetadata   = "clientMetadata"
	FieldHoneypot   = "bot-field"
	FieldFile       = "file"
)

// 提交相关的限制常量
const (
	MinSuggestionLength = 10              // 建议文本最少字符数
	MaxTextLength       = 3000            // 清洗后文本最大字符数
	DescriptionLimit    = 1200            // 消息描述最大字符数，超出部分以附件发送
	MaxFileSize         = 5 * 1024 * 1024 // 5MB
	DefaultName         = "Anonymous"
)

// DefaultAllowedTypes 默认允许上传的图片类型
var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/webp"}

// RawSubmission 中继端点收到的原始表单值（未清洗）。
//
// 重试时从这份原始数据重新构建消息。
type RawSubmission struct {
	Name           string
	Email          string
	Category       string
	Priority       string
	Suggestion     string
	Consent        string
	ClientMetadata string
	Honeypot       string
	File           *Attachment
	ClientIP       string
	ReceivedAt     time.Time
}

// SubmissionPayload 经过校验与清洗的一次提交。
type SubmissionPayload struct {
	Name       string         `json:"name"`
	Email      string         `json:"email,omitempty"`
	Category   string         `json:"category"`
	Priority   Priority       `json:"priority"`
	Suggestion string         `json:"suggestion"`
	FullText   string         `json:"-"` // 未转义、未截断的原始建议文本，只用于全文附件
	Consent    bool           `json:"consent"`
	Attachment *Attachment    `json:"-"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// SubmissionResult 中继端点返回给调用方的结果
type SubmissionResult struct {
	Status       string `json:"status"`
	SubmissionID string `json:"submissionId"`
	Forwarded    bool   `json:"forwarded"`
}

// Limits 对外公开的提交限制，客户端据此自我配置
type Limits struct {
	MaxFileSize         int64         `json:"maxFileSize"`
	AllowedTypes        []string      `json:"allowedTypes"`
	MinSuggestionLength int           `json:"minSuggestionLength"`
	MaxTextLength       int           `json:"maxTextLength"`
	RateLimit           int           `json:"rateLimit"`
	RateWindow          time.Duration `json:"-"`
	RateWindowSeconds   int64         `json:"rateWindowSeconds"`
}
