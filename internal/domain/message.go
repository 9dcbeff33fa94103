package domain

// EmbedField 结构化消息中的单个字段
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// EmbedFooter 结构化消息页脚
type EmbedFooter struct {
	Text string `json:"text"`
}

// EmbedImage 结构化消息中的图片引用
type EmbedImage struct {
	URL string `json:"url"`
}

// StructuredMessage 发往聊天 Webhook 的结构化通知（embed）。
type StructuredMessage struct {
	Title       string       `json:"title"`
	Color       int          `json:"color"`
	Fields      []EmbedField `json:"fields"`
	Description string       `json:"description"`
	Timestamp   string       `json:"timestamp"` // RFC 3339
	Footer      EmbedFooter  `json:"footer"`
	Image       *EmbedImage  `json:"image,omitempty"`
}

// FileAttachment Webhook 请求中的文件部分
type FileAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"-"`
	Data        []byte `json:"-"`
}

// WebhookPayload 一次 Webhook 调用的完整内容
type WebhookPayload struct {
	Content string              `json:"content,omitempty"`
	Embeds  []StructuredMessage `json:"embeds"`
	Files   []FileAttachment    `json:"-"` // 非空时以 multipart 发送
}

// HasFiles 是否需要以 multipart 编码发送
func (p *WebhookPayload) HasFiles() bool {
	return len(p.Files) > 0
}
