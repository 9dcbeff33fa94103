package domain

// Attachment 表示随建议一同上传的截图。
type Attachment struct {
	Filename    string `json:"filename"`    // 原始文件名
	ContentType string `json:"contentType"` // MIME 类型
	Data        []byte `json:"-"`           // 文件内容
}

// Size 返回附件大小（字节）
func (a *Attachment) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

// Ext 根据校验过的 MIME 类型返回不带点号的扩展名，不采信客户端文件名
func (a *Attachment) Ext() string {
	switch NormalizeContentType(a.ContentType) {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}
	return "bin"
}
